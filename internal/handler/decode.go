package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

const maxBodyBytes = 1 << 20

// requestError is a client mistake in the request itself.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest(err.Error())
	}
	if !jx.Valid(data) {
		return nil, badRequest("malformed JSON body")
	}
	return jx.DecodeBytes(data), nil
}

type addItemRequest struct {
	ProductID string
	Quantity  int
}

func decodeAddItem(d *jx.Decoder) (addItemRequest, error) {
	req := addItemRequest{Quantity: 1}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, badRequest(err.Error())
	}
	if req.ProductID == "" {
		return req, badRequest("productId is required")
	}
	return req, nil
}

func decodeQuantity(d *jx.Decoder) (int, error) {
	var (
		qty int
		set bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		set = true
		var err error
		qty, err = d.Int()
		return err
	})
	if err != nil {
		return 0, badRequest(err.Error())
	}
	if !set {
		return 0, badRequest("quantity is required")
	}
	return qty, nil
}

func decodeRule(d *jx.Decoder) (discount.Rule, error) {
	r, err := discount.DecodeRule(d)
	if err != nil {
		return r, badRequest(err.Error())
	}
	return r, nil
}
