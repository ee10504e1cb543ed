package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"library-lending/internal/apperr"
	"library-lending/internal/lending"
	"library-lending/internal/models"
)

type Store struct {
	borrowals *mongo.Collection
	books     *mongo.Collection
	users     *mongo.Collection
	now       func() time.Time
}

// New opens the collections of db.
func New(db *mongo.Database) *Store {
	return NewStore(db.Collection(BorrowalsCollection), db.Collection(BooksCollection), db.Collection(UsersCollection))
}

func NewStore(borrowals, books, users *mongo.Collection) *Store {
	return &Store{borrowals: borrowals, books: books, users: users, now: time.Now}
}

type memberRef struct {
	ID    primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
}

type bookRef struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type borrowalDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	BookID        primitive.ObjectID `bson:"bookId"`
	MemberID      primitive.ObjectID `bson:"memberId"`
	BorrowedDate  looseTime          `bson:"borrowedDate"`
	DueDate       looseTime          `bson:"dueDate"`
	Status        string             `bson:"status"`
	FineAmount    float64            `bson:"fineAmount"`
	FinePaid      bool               `bson:"finePaid"`
	PaymentMode   string             `bson:"paymentMode"`
	ReceiptNumber *string            `bson:"receiptNumber"`
	PaidAt        *time.Time         `bson:"paidAt"`
	AmountPaid    float64            `bson:"amountPaid"`
	ReturnedAt    *time.Time         `bson:"returnedAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`

	Member []memberRef `bson:"member,omitempty"`
	Book   []bookRef   `bson:"book,omitempty"`
}

func (d borrowalDoc) toModel() models.Borrowal {
	b := models.Borrowal{
		ID:            d.ID.Hex(),
		BookID:        hexOrEmpty(d.BookID),
		MemberID:      hexOrEmpty(d.MemberID),
		BorrowedDate:  d.BorrowedDate.Time,
		DueDate:       d.DueDate.Time,
		Status:        models.BorrowalStatus(d.Status),
		FineAmount:    d.FineAmount,
		FinePaid:      d.FinePaid,
		PaymentMode:   models.PaymentMode(d.PaymentMode),
		ReceiptNumber: d.ReceiptNumber,
		PaidAt:        d.PaidAt,
		AmountPaid:    d.AmountPaid,
		ReturnedAt:    d.ReturnedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if b.Status == "" {
		b.Status = models.StatusIssued
	}
	if b.PaymentMode == "" {
		b.PaymentMode = models.PaymentOffline
	}
	if len(d.Member) > 0 {
		m := d.Member[0]
		b.Member = &models.MemberSummary{ID: m.ID.Hex(), Name: m.Name, Email: m.Email}
	}
	if len(d.Book) > 0 {
		bk := d.Book[0]
		b.Book = &models.BookSummary{ID: bk.ID.Hex(), Name: bk.Name}
	}
	return b
}

// EnsureIndexes creates the partial unique index that allows one Issued
// borrowal per book, plus lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.borrowals.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "bookId", Value: 1}},
			Options: options.Index().
				SetName("one_active_borrowal_per_book").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.StatusIssued}),
		},
		{Keys: bson.D{{Key: "memberId", Value: 1}}},
	})
	if err != nil {
		return apperr.Store(err, "create borrowal indexes")
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return apperr.Store(err, "create user indexes")
	}
	return nil
}

func (s *Store) Create(ctx context.Context, b *models.Borrowal) error {
	bookID, err := objectID(b.BookID, "book")
	if err != nil {
		return err
	}
	memberID, err := objectID(b.MemberID, "member")
	if err != nil {
		return err
	}

	// conditional claim: only an available book flips to issued
	claim := s.books.FindOneAndUpdate(ctx,
		bson.M{"_id": bookID, "isAvailable": true},
		bson.M{"$set": bson.M{
			"isAvailable": false,
			"issuedTo":    memberID,
			"issuedAt":    b.CreatedAt,
			"updatedAt":   b.CreatedAt,
		}},
	)
	if err := claim.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.claimFailure(ctx, bookID)
		}
		return apperr.Store(err, "claim book")
	}

	doc := borrowalDoc{
		ID:           primitive.NewObjectID(),
		BookID:       bookID,
		MemberID:     memberID,
		BorrowedDate: looseTime{b.BorrowedDate},
		DueDate:      looseTime{b.DueDate},
		Status:       string(b.Status),
		FineAmount:   b.FineAmount,
		FinePaid:     b.FinePaid,
		PaymentMode:  string(b.PaymentMode),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if _, err := s.borrowals.InsertOne(ctx, doc); err != nil {
		// undo the claim so the book does not stay unavailable without a loan
		if relErr := s.releaseBook(context.WithoutCancel(ctx), bookID, b.CreatedAt); relErr != nil {
			return apperr.Store(errors.Join(err, relErr), "insert borrowal and release book")
		}
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("Book is not available")
		}
		return apperr.Store(err, "insert borrowal")
	}

	b.ID = doc.ID.Hex()
	return nil
}

func (s *Store) claimFailure(ctx context.Context, bookID primitive.ObjectID) error {
	n, err := s.books.CountDocuments(ctx, bson.M{"_id": bookID})
	if err != nil {
		return apperr.Store(err, "count books")
	}
	if n == 0 {
		return apperr.NotFound("Book not found")
	}
	return apperr.Conflict("Book is not available")
}

func (s *Store) Get(ctx context.Context, id string) (*models.Borrowal, error) {
	oid, err := objectID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	list, err := s.aggregate(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("Borrowal not found")
	}
	return &list[0], nil
}

func (s *Store) List(ctx context.Context, filter lending.Filter) ([]models.Borrowal, error) {
	match := bson.M{}
	if filter.MemberID != "" {
		memberID, err := objectID(filter.MemberID, "member")
		if err != nil {
			return nil, err
		}
		match["memberId"] = memberID
	}
	return s.aggregate(ctx, match)
}

// aggregate populates member and book the way mongoose populate did.
func (s *Store) aggregate(ctx context.Context, match bson.M) ([]models.Borrowal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.users.Name()},
			{Key: "localField", Value: "memberId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "member"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.books.Name()},
			{Key: "localField", Value: "bookId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "book"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "member.passwordHash", Value: 0},
		}}},
	}

	cursor, err := s.borrowals.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Store(err, "find borrowals")
	}
	defer cursor.Close(ctx)

	var docs []borrowalDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Store(err, "decode borrowals")
	}

	out := make([]models.Borrowal, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, ch lending.Change) (*models.Borrowal, error) {
	oid, err := objectID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid}
	set := bson.M{"updatedAt": ch.At}
	if ch.BorrowedDate != nil {
		set["borrowedDate"] = *ch.BorrowedDate
	}
	if ch.DueDate != nil {
		set["dueDate"] = *ch.DueDate
	}
	if ch.Return {
		filter["status"] = models.StatusIssued
		set["status"] = models.StatusReturned
		set["returnedAt"] = ch.At
	}

	var before borrowalDoc
	err = s.borrowals.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}).Decode(&before)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Store(err, "update borrowal")
		}
		if !ch.Return {
			return nil, apperr.NotFound("Borrowal not found")
		}
		return nil, s.returnFailure(ctx, oid)
	}

	if ch.Return {
		if err := s.releaseBook(ctx, before.BookID, ch.At); err != nil {
			// put the loan back to Issued so it still matches the book
			_, undoErr := s.borrowals.UpdateOne(context.WithoutCancel(ctx),
				bson.M{"_id": oid},
				bson.M{
					"$set":   bson.M{"status": models.StatusIssued, "updatedAt": before.UpdatedAt},
					"$unset": bson.M{"returnedAt": ""},
				})
			return nil, apperr.Store(errors.Join(err, undoErr), "release book")
		}
	}

	return s.Get(ctx, id)
}

func (s *Store) returnFailure(ctx context.Context, oid primitive.ObjectID) error {
	n, err := s.borrowals.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperr.Store(err, "count borrowals")
	}
	if n == 0 {
		return apperr.NotFound("Borrowal not found")
	}
	return apperr.Conflict("Borrowal already returned")
}

func (s *Store) Delete(ctx context.Context, id string) (*models.Borrowal, error) {
	oid, err := objectID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	// read first so the deleted record still carries member and book
	joined, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var doc borrowalDoc
	if err := s.borrowals.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Borrowal not found")
		}
		return nil, apperr.Store(err, "delete borrowal")
	}

	if doc.Status == string(models.StatusIssued) || doc.Status == "" {
		if err := s.releaseBook(ctx, doc.BookID, s.now()); err != nil {
			// restore the loan rather than leave the book held by nothing visible
			_, undoErr := s.borrowals.InsertOne(context.WithoutCancel(ctx), doc)
			return nil, apperr.Store(errors.Join(err, undoErr), "release book")
		}
	}

	b := doc.toModel()
	b.Member, b.Book = joined.Member, joined.Book
	return &b, nil
}

func (s *Store) MarkFinePaid(ctx context.Context, id string, p lending.Payment) (*models.Borrowal, error) {
	oid, err := objectID(id, "borrowal")
	if err != nil {
		return nil, err
	}

	res := s.borrowals.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "finePaid": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"finePaid":      true,
			"paymentMode":   models.PaymentOffline,
			"receiptNumber": p.ReceiptNumber,
			"paidAt":        p.PaidAt,
			"amountPaid":    p.Amount,
			"updatedAt":     p.PaidAt,
		}},
	)
	if err := res.Err(); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Store(err, "record payment")
		}
		n, countErr := s.borrowals.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return nil, apperr.Store(countErr, "count borrowals")
		}
		if n == 0 {
			return nil, apperr.NotFound("Borrowal not found")
		}
		return nil, apperr.Conflict("Fine already paid")
	}

	return s.Get(ctx, id)
}

func (s *Store) releaseBook(ctx context.Context, bookID primitive.ObjectID, at time.Time) error {
	_, err := s.books.UpdateOne(ctx,
		bson.M{"_id": bookID},
		bson.M{"$set": bson.M{
			"isAvailable": true,
			"issuedTo":    nil,
			"issuedAt":    nil,
			"updatedAt":   at,
		}},
	)
	return err
}
