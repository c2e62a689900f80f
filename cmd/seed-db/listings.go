package main

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/autoparts/internal/domain/listing"
)

// parseListings decodes a JSON array of catalog entries. Listings are active
// unless "active" is false; stock defaults to 1.
func parseListings(data []byte) ([]listing.Listing, error) {
	var out []listing.Listing
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		l := listing.Listing{Stock: 1, Active: true}
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				l.ID, err = d.Str()
			case "sellerId":
				l.SellerID, err = d.Str()
			case "sellerCity":
				l.SellerCity, err = d.Str()
			case "partNumber":
				l.PartNumber, err = d.Str()
			case "title":
				err = d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "ar":
						l.Title.AR, err = d.Str()
					case "en":
						l.Title.EN, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				})
			case "price":
				var n jx.Num
				if n, err = d.Num(); err == nil {
					l.Price, err = decimal.NewFromString(n.String())
				}
			case "stock":
				l.Stock, err = d.Int()
			case "active":
				l.Active, err = d.Bool()
			default:
				err = d.Skip()
			}
			return errors.Wrap(err, key)
		}); err != nil {
			return errors.Wrapf(err, "listing %d", len(out))
		}

		switch {
		case l.ID == "":
			return errors.Errorf("listing %d: id required", len(out))
		case l.SellerID == "":
			return errors.Errorf("listing %s: sellerId required", l.ID)
		case l.Title.AR == "":
			return errors.Errorf("listing %s: Arabic title required", l.ID)
		case l.Price.IsNegative() || l.Stock < 0:
			return errors.Errorf("listing %s: price and stock must not be negative", l.ID)
		}
		out = append(out, l)
		return nil
	})
	return out, err
}
