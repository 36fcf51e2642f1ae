// Package receipt renders order receipts as plain text and files them.
package receipt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/shopledger/internal/domain/order"
)

// DateLayout is the date layout printed on receipts.
const DateLayout = "2006-01-02 15:04:05"

// Render writes r to w. Amounts are printed with two decimals followed by
// currency.
func Render(w io.Writer, r *order.Receipt, currency string) error {
	var b strings.Builder
	b.WriteString("--- ORDER RECEIPT ---\n")
	fmt.Fprintf(&b, "Number: %s\n", r.Number)
	fmt.Fprintf(&b, "Date: %s\n", r.CreatedAt.Local().Format(DateLayout))
	fmt.Fprintf(&b, "Client: %s (ID: %s)\n", r.ClientName, r.ClientID)
	fmt.Fprintf(&b, "Status: %s\n", r.Status.Label())
	b.WriteString("Products:\n")
	for _, l := range r.Lines {
		fmt.Fprintf(&b, "  - %s x %d @ %s %s = %s %s\n",
			l.ProductName, l.Quantity,
			l.UnitPrice.StringFixed(2), currency,
			l.Amount.StringFixed(2), currency,
		)
	}
	fmt.Fprintf(&b, "TOTAL: %s %s\n", r.Total.StringFixed(2), currency)
	b.WriteString("---------------------\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// FileName returns the receipt file name for an order number.
func FileName(number string) string {
	return "recu_" + strings.ReplaceAll(number, "-", "_") + ".txt"
}

// Sink stores rendered receipts.
type Sink interface {
	Write(r *order.Receipt) (string, error)
}

var _ Sink = (*DirSink)(nil)

// DirSink writes one text file per receipt into a directory.
type DirSink struct {
	dir      string
	currency string
}

// NewDirSink returns a DirSink writing into dir.
func NewDirSink(dir, currency string) *DirSink {
	return &DirSink{dir: dir, currency: currency}
}

// Write renders r and returns the path of the written file. An existing
// receipt for the same order is replaced.
func (s *DirSink) Write(r *order.Receipt) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create receipts dir")
	}
	path := filepath.Join(s.dir, FileName(r.Number))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create receipt")
	}
	if err := Render(f, r, s.currency); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "write receipt")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close receipt")
	}
	return path, nil
}
