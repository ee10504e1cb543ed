package lending

import (
	"library-lending/internal/listing"
	"library-lending/internal/models"
)

// BorrowalTable exposes the borrowal columns of the dashboard table.
var BorrowalTable = listing.Table[models.Borrowal]{
	"memberName":   {Value: func(b models.Borrowal) any { return b.MemberName() }, Searchable: true},
	"bookName":     {Value: func(b models.Borrowal) any { return b.BookName() }, Searchable: true},
	"status":       {Value: func(b models.Borrowal) any { return string(b.Status) }, Searchable: true},
	"borrowedDate": {Value: func(b models.Borrowal) any { return b.BorrowedDate }},
	"dueDate":      {Value: func(b models.Borrowal) any { return b.DueDate }},
	"fineAmount":   {Value: func(b models.Borrowal) any { return b.FineAmount }},
	"finePaid":     {Value: func(b models.Borrowal) any { return b.FinePaid }},
}
