package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"library-lending/internal/apperr"
	"library-lending/internal/models"
)

type bookDoc struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Name        string              `bson:"name"`
	ISBN        string              `bson:"isbn"`
	AuthorID    primitive.ObjectID  `bson:"authorId,omitempty"`
	GenreID     primitive.ObjectID  `bson:"genreId,omitempty"`
	Category    string              `bson:"category"`
	IsAvailable bool                `bson:"isAvailable"`
	Summary     string              `bson:"summary,omitempty"`
	PhotoURL    string              `bson:"photoUrl,omitempty"`
	IssuedTo    *primitive.ObjectID `bson:"issuedTo"`
	IssuedAt    *looseTime          `bson:"issuedAt"`
	CreatedAt   looseTime           `bson:"createdAt"`
	UpdatedAt   looseTime           `bson:"updatedAt"`
}

func (d bookDoc) toModel() models.Book {
	b := models.Book{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		ISBN:        d.ISBN,
		AuthorID:    hexOrEmpty(d.AuthorID),
		GenreID:     hexOrEmpty(d.GenreID),
		Category:    models.Category(d.Category),
		IsAvailable: d.IsAvailable,
		Summary:     d.Summary,
		PhotoURL:    d.PhotoURL,
		CreatedAt:   d.CreatedAt.Time,
		UpdatedAt:   d.UpdatedAt.Time,
	}
	if d.IssuedTo != nil {
		to := d.IssuedTo.Hex()
		b.IssuedTo = &to
	}
	if d.IssuedAt != nil && !d.IssuedAt.IsZero() {
		at := d.IssuedAt.Time
		b.IssuedAt = &at
	}
	return b
}

func (s *Store) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	query := bson.M{}
	if filter.Category != nil {
		query["category"] = string(*filter.Category)
	}
	if filter.Available != nil {
		query["isAvailable"] = *filter.Available
	}

	cursor, err := s.books.Find(ctx, query)
	if err != nil {
		return nil, apperr.Store(err, "find books")
	}
	defer cursor.Close(ctx)

	var docs []bookDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Store(err, "decode books")
	}

	out := make([]models.Book, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *Store) GetBook(ctx context.Context, id string) (*models.Book, error) {
	oid, err := objectID(id, "book")
	if err != nil {
		return nil, err
	}

	var doc bookDoc
	if err := s.books.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Book not found")
		}
		return nil, apperr.Store(err, "find book")
	}
	b := doc.toModel()
	return &b, nil
}

func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	doc := bookDoc{
		ID:          primitive.NewObjectID(),
		Name:        b.Name,
		ISBN:        b.ISBN,
		AuthorID:    optionalObjectID(b.AuthorID),
		GenreID:     optionalObjectID(b.GenreID),
		Category:    string(b.Category),
		IsAvailable: b.IsAvailable,
		Summary:     b.Summary,
		PhotoURL:    b.PhotoURL,
		CreatedAt:   looseTime{b.CreatedAt},
		UpdatedAt:   looseTime{b.UpdatedAt},
	}
	if _, err := s.books.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("Book already exists")
		}
		return apperr.Store(err, "insert book")
	}
	b.ID = doc.ID.Hex()
	return nil
}

func (s *Store) UpdateBook(ctx context.Context, id string, u models.BookUpdate) (*models.Book, error) {
	oid, err := objectID(id, "book")
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": s.now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.ISBN != nil {
		set["isbn"] = *u.ISBN
	}
	if u.AuthorID != nil {
		set["authorId"] = optionalObjectID(*u.AuthorID)
	}
	if u.GenreID != nil {
		set["genreId"] = optionalObjectID(*u.GenreID)
	}
	if u.Category != nil {
		set["category"] = string(*u.Category)
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.PhotoURL != nil {
		set["photoUrl"] = *u.PhotoURL
	}

	var doc bookDoc
	err = s.books.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Book not found")
		}
		return nil, apperr.Store(err, "update book")
	}
	b := doc.toModel()
	return &b, nil
}

// DeleteBook refuses to remove a book that an active borrowal holds.
func (s *Store) DeleteBook(ctx context.Context, id string) (*models.Book, error) {
	oid, err := objectID(id, "book")
	if err != nil {
		return nil, err
	}

	var doc bookDoc
	err = s.books.FindOneAndDelete(ctx, bson.M{"_id": oid, "isAvailable": true}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Store(err, "delete book")
		}
		n, countErr := s.books.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return nil, apperr.Store(countErr, "count books")
		}
		if n == 0 {
			return nil, apperr.NotFound("Book not found")
		}
		return nil, apperr.Conflict("Book is currently issued")
	}
	b := doc.toModel()
	return &b, nil
}
