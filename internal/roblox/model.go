package roblox

import (
	"bytes"
	"mime/multipart"
	"slices"
	"strconv"

	"github.com/agentstation/rbxproducts/pkg/catalog"
)

const featureRegionalPricing = "RegionalPricing"

type priceInformation struct {
	DefaultPriceInRobux int64    `json:"defaultPriceInRobux"`
	EnabledFeatures     []string `json:"enabledFeatures"`
}

type gamePass struct {
	GamePassID       uint64            `json:"gamePassId"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	IsForSale        bool              `json:"isForSale"`
	PriceInformation *priceInformation `json:"priceInformation"`
}

type developerProduct struct {
	ProductID        uint64            `json:"productId"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	IsForSale        bool              `json:"isForSale"`
	PriceInformation *priceInformation `json:"priceInformation"`
}

type gamePassPage struct {
	GamePasses    []gamePass `json:"gamePasses"`
	NextPageToken string     `json:"nextPageToken"`
}

type developerProductPage struct {
	DeveloperProducts []developerProduct `json:"developerProducts"`
	NextPageToken     string             `json:"nextPageToken"`
}

func (g gamePass) record() catalog.Record {
	price, regional := g.PriceInformation.split()
	return catalog.Record{
		ID:              g.GamePassID,
		Category:        catalog.GamePass,
		Name:            g.Name,
		Price:           price,
		Description:     g.Description,
		ForSale:         g.IsForSale,
		RegionalPricing: regional,
	}
}

func (p developerProduct) record() catalog.Record {
	price, regional := p.PriceInformation.split()
	return catalog.Record{
		ID:              p.ProductID,
		Category:        catalog.Product,
		Name:            p.Name,
		Price:           price,
		Description:     p.Description,
		ForSale:         p.IsForSale,
		RegionalPricing: regional,
	}
}

func (pi *priceInformation) split() (int64, bool) {
	if pi == nil {
		return 0, false
	}
	return pi.DefaultPriceInRobux, slices.Contains(pi.EnabledFeatures, featureRegionalPricing)
}

// form accumulates multipart fields in insertion order.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err == nil {
		f.err = f.w.WriteField(name, value)
	}
}

func (f *form) close() (*bytes.Buffer, string, error) {
	if f.err == nil {
		f.err = f.w.Close()
	}
	return &f.buf, f.w.FormDataContentType(), f.err
}

// draftForm encodes a create request. Zero prices are omitted; the API
// treats them as "not priced".
func draftForm(d catalog.Draft) *form {
	f := newForm()
	f.field("name", d.Name)
	f.field("description", d.Description)
	f.field("isForSale", strconv.FormatBool(d.ForSale))
	if d.Price > 0 {
		f.field("price", strconv.FormatInt(d.Price, 10))
	}
	f.field("isRegionalPricingEnabled", strconv.FormatBool(d.RegionalPricing))
	return f
}

// patchForm encodes only the fields set in p.
func patchForm(p catalog.Patch) *form {
	f := newForm()
	if p.Name != nil {
		f.field("name", *p.Name)
	}
	if p.Description != nil {
		f.field("description", *p.Description)
	}
	if p.ForSale != nil {
		f.field("isForSale", strconv.FormatBool(*p.ForSale))
	}
	if p.Price != nil {
		f.field("price", strconv.FormatInt(*p.Price, 10))
	}
	if p.RegionalPricing != nil {
		f.field("isRegionalPricingEnabled", strconv.FormatBool(*p.RegionalPricing))
	}
	return f
}
