package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

// encodeSnapshot renders items as {"items":[{"id","name","price","category","quantity"}]}.
// Prices are written as strings to keep them exact.
func encodeSnapshot(items []LineItem) string {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, li := range items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(li.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(li.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Str(li.UnitPrice.String()) })
						e.Field("category", func(e *jx.Encoder) { e.Str(li.Category) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(li.Quantity) })
					})
				}
			})
		})
	})
	return e.String()
}

// decodeSnapshot parses a snapshot written by encodeSnapshot. Prices may be
// JSON strings (including display strings such as "K1,000") or numbers.
// Lines without an id or with a non-positive quantity are dropped, and
// repeated ids are merged into the first line.
func decodeSnapshot(raw string) ([]LineItem, error) {
	if !jx.Valid([]byte(raw)) {
		return nil, errors.New("snapshot is not valid JSON")
	}
	d := jx.DecodeStr(raw)
	if d.Next() != jx.Object {
		return nil, errors.New("snapshot is not an object")
	}

	var items []LineItem
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			li, err := decodeLine(d)
			if err != nil {
				return err
			}
			if li.ProductID == "" || li.Quantity < 1 {
				return nil
			}
			for i := range items {
				if items[i].ProductID == li.ProductID {
					items[i].Quantity += li.Quantity
					return nil
				}
			}
			items = append(items, li)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return items, nil
}

func decodeLine(d *jx.Decoder) (LineItem, error) {
	var li LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			li.ProductID, err = d.Str()
		case "name":
			li.Name, err = optionalStr(d)
		case "category":
			li.Category, err = optionalStr(d)
		case "price":
			li.UnitPrice, err = decodePrice(d)
		case "quantity":
			li.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return li, err
}

func optionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return product.ParsePrice(s), nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.New("price must be a string or number")
	}
}
