package jsonfile

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/order"
	"github.com/xenking/shopledger/internal/domain/product"
)

// DateLayout is the layout of order creation dates in data files.
const DateLayout = "2006-01-02 15:04:05"

const indent = 4

// skipFunc is called for a well-formed record that fails domain validation.
type skipFunc func(err error)

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			e.Obj(func(e *jx.Encoder) {
				e.Field("reference", func(e *jx.Encoder) { e.Str(p.Reference) })
				e.Field("nom", func(e *jx.Encoder) { e.Str(p.Name) })
				e.Field("prix_unitaire", func(e *jx.Encoder) { writeDecimal(e, p.UnitPrice) })
				e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
			})
		}
	})
}

func encodeClients(e *jx.Encoder, clients []client.Client) {
	e.Arr(func(e *jx.Encoder) {
		for _, c := range clients {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id_client", func(e *jx.Encoder) { e.Str(c.ID) })
				e.Field("nom", func(e *jx.Encoder) { e.Str(c.LastName) })
				e.Field("prenom", func(e *jx.Encoder) { e.Str(c.FirstName) })
				e.Field("adresse", func(e *jx.Encoder) { e.Str(c.Address) })
				e.Field("telephone", func(e *jx.Encoder) { writeOptional(e, c.Phone) })
				e.Field("email", func(e *jx.Encoder) { writeOptional(e, c.Email) })
			})
		}
	})
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Arr(func(e *jx.Encoder) {
		for _, o := range orders {
			e.Obj(func(e *jx.Encoder) {
				e.Field("numero_commande", func(e *jx.Encoder) { e.Str(o.Number) })
				e.Field("date_creation", func(e *jx.Encoder) { e.Str(o.CreatedAt.Local().Format(DateLayout)) })
				e.Field("id_client", func(e *jx.Encoder) { e.Str(o.ClientID) })
				e.Field("produits_commandes", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, l := range o.Lines {
							e.Obj(func(e *jx.Encoder) {
								e.Field("ref_produit", func(e *jx.Encoder) { e.Str(l.ProductRef) })
								e.Field("quantite", func(e *jx.Encoder) { e.Int(l.Quantity) })
								e.Field("prix_vente", func(e *jx.Encoder) { writeDecimal(e, l.UnitPrice) })
							})
						}
					})
				})
				e.Field("total", func(e *jx.Encoder) { writeDecimal(e, o.Total) })
				e.Field("statut", func(e *jx.Encoder) { e.Str(o.Status.Label()) })
			})
		}
	})
}

func writeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

func writeOptional(e *jx.Encoder, v string) {
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}

func decodeProducts(d *jx.Decoder, skip skipFunc) ([]product.Product, error) {
	var out []product.Product
	err := d.Arr(func(d *jx.Decoder) error {
		var ref, name, price, stock string
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "reference":
				ref, err = readText(d)
			case "nom":
				name, err = readText(d)
			case "prix_unitaire":
				price, err = readText(d)
			case "stock":
				stock, err = readText(d)
			default:
				return d.Skip()
			}
			return err
		}); err != nil {
			return err
		}

		p, err := product.Parse(ref, name, price, stock)
		if err != nil {
			skip(errors.Wrapf(err, "product %q", ref))
			return nil
		}
		out = append(out, *p)
		return nil
	})
	return out, err
}

func decodeClients(d *jx.Decoder, skip skipFunc) ([]client.Client, error) {
	var out []client.Client
	err := d.Arr(func(d *jx.Decoder) error {
		var c client.Client
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id_client":
				c.ID, err = readText(d)
			case "nom":
				c.LastName, err = readText(d)
			case "prenom":
				c.FirstName, err = readText(d)
			case "adresse":
				c.Address, err = readText(d)
			case "telephone":
				c.Phone, err = readText(d)
			case "email":
				c.Email, err = readText(d)
			default:
				return d.Skip()
			}
			return err
		}); err != nil {
			return err
		}

		if c.ID == "" {
			skip(errors.New("client without id_client"))
			return nil
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func decodeOrders(d *jx.Decoder, skip skipFunc) ([]order.Order, error) {
	var out []order.Order
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			o            order.Order
			date, status string
			total        string
			invalid      error
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "numero_commande":
				o.Number, err = readText(d)
			case "date_creation":
				date, err = readText(d)
			case "id_client":
				o.ClientID, err = readText(d)
			case "produits_commandes":
				o.Lines, err = decodeLines(d, &invalid)
			case "total":
				total, err = readText(d)
			case "statut":
				status, err = readText(d)
			default:
				return d.Skip()
			}
			return err
		}); err != nil {
			return err
		}

		if invalid == nil {
			invalid = fillOrder(&o, date, total, status)
		}
		if invalid != nil {
			skip(errors.Wrapf(invalid, "order %q", o.Number))
			return nil
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

func fillOrder(o *order.Order, date, total, status string) error {
	if o.Number == "" {
		return errors.New("missing numero_commande")
	}
	var err error
	if o.Status, err = order.ParseStatus(status); err != nil {
		return err
	}
	if o.CreatedAt, err = parseDate(date); err != nil {
		return err
	}
	o.Total = decimal.Zero
	if total != "" {
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return errors.Wrap(err, "parse total")
		}
	}
	return nil
}

// decodeLines returns an error only for malformed JSON; an unusable line is
// reported through invalid.
func decodeLines(d *jx.Decoder, invalid *error) ([]order.Line, error) {
	var lines []order.Line
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			l          order.Line
			qty, price string
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "ref_produit":
				l.ProductRef, err = readText(d)
			case "quantite":
				qty, err = readText(d)
			case "prix_vente":
				price, err = readText(d)
			default:
				return d.Skip()
			}
			return err
		}); err != nil {
			return err
		}

		var perr error
		if l.Quantity, perr = strconv.Atoi(qty); perr != nil || l.Quantity <= 0 {
			*invalid = errors.Errorf("line %q: invalid quantity %q", l.ProductRef, qty)
			return nil
		}
		if l.UnitPrice, perr = decimal.NewFromString(price); perr != nil {
			*invalid = errors.Errorf("line %q: invalid price %q", l.ProductRef, price)
			return nil
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date_creation %q", s)
	}
	return t, nil
}

// readText reads a string, number, or null value as text. Older files store
// some numbers as strings and leave optional fields null.
func readText(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return string(n), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %v value", d.Next())
	}
}
