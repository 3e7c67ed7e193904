package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// DecodeCatalog reads a JSON array of products. Prices may be numbers or
// display strings and go through ParsePrice.
func DecodeCatalog(data []byte) ([]Product, error) {
	var out []Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeProduct reads a single product object.
func DecodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			var raw string
			switch d.Next() {
			case jx.Number:
				var n jx.Num
				n, err = d.Num()
				raw = n.String()
			default:
				raw, err = d.Str()
			}
			p.Price = ParsePrice(raw)
		case "image":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "thumbnail":
					p.Image.Thumbnail, err = d.Str()
				case "mobile":
					p.Image.Mobile, err = d.Str()
				case "tablet":
					p.Image.Tablet, err = d.Str()
				case "desktop":
					p.Image.Desktop, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	if p.ID == "" {
		return p, errors.New("product id is required")
	}
	return p, nil
}
