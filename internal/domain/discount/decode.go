package discount

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeRule reads a rule in its JSON form. Value may be a number or a
// numeric string; dates are RFC 3339 strings or null. Unknown keys are
// ignored and the result is not validated.
func DecodeRule(d *jx.Decoder) (Rule, error) {
	var r Rule
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			r.ID, err = optionalStr(d)
		case "name":
			r.Name, err = d.Str()
		case "description":
			r.Description, err = optionalStr(d)
		case "type":
			var s string
			s, err = d.Str()
			r.Type = Type(s)
		case "value":
			r.Value, err = decodeDecimal(d)
		case "minQuantity":
			r.MinQuantity, err = d.Int()
		case "maxQuantity":
			if d.Next() == jx.Null {
				return d.Null()
			}
			r.MaxQuantity, err = d.Int()
		case "applicableProducts":
			var s string
			s, err = d.Str()
			r.Scope = Scope(s)
		case "categoryFilter":
			r.CategoryFilter, err = optionalStr(d)
		case "specificProducts":
			if d.Next() == jx.Null {
				return d.Null()
			}
			r.SpecificProducts = []string{}
			err = d.Arr(func(d *jx.Decoder) error {
				id, err := d.Str()
				r.SpecificProducts = append(r.SpecificProducts, id)
				return err
			})
		case "isActive":
			r.IsActive, err = d.Bool()
		case "startDate":
			r.StartDate, err = decodeTime(d)
		case "endDate":
			r.EndDate, err = decodeTime(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return r, err
}

// DecodeRules reads a JSON array of rules.
func DecodeRules(data []byte) ([]Rule, error) {
	var out []Rule
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		r, err := DecodeRule(d)
		if err != nil {
			return errors.Wrapf(err, "rule %d", len(out))
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func optionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, errors.New("expected number")
	}
}

func decodeTime(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil || s == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
