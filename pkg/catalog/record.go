package catalog

import "fmt"

// Record is the remote truth for one catalog item. IDs are assigned by the
// catalog service and are unique within a category.
type Record struct {
	ID              uint64   `json:"id" yaml:"id"`
	Category        Category `json:"category" yaml:"category"`
	Name            string   `json:"name" yaml:"name"`
	Price           int64    `json:"price" yaml:"price"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	ForSale         bool     `json:"for_sale" yaml:"for_sale"`
	RegionalPricing bool     `json:"regional_pricing" yaml:"regional_pricing"`
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return fmt.Sprintf("%s %d %q", r.Category, r.ID, r.Name)
}

// Field names a mutable attribute of a Record.
type Field string

const (
	FieldName            Field = "name"
	FieldPrice           Field = "price"
	FieldDescription     Field = "description"
	FieldForSale         Field = "for_sale"
	FieldRegionalPricing Field = "regional_pricing"
)

// AllFields returns every mutable field in comparison order.
func AllFields() []Field {
	return []Field{FieldName, FieldPrice, FieldDescription, FieldForSale, FieldRegionalPricing}
}

// Draft is the payload for creating a new Record.
type Draft struct {
	Category        Category `json:"category" yaml:"category"`
	Name            string   `json:"name" yaml:"name"`
	Price           int64    `json:"price" yaml:"price"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	ForSale         bool     `json:"for_sale" yaml:"for_sale"`
	RegionalPricing bool     `json:"regional_pricing" yaml:"regional_pricing"`
}

// Patch is a partial update. Nil fields are left untouched remotely.
type Patch struct {
	Name            *string `json:"name,omitempty" yaml:"name,omitempty"`
	Price           *int64  `json:"price,omitempty" yaml:"price,omitempty"`
	Description     *string `json:"description,omitempty" yaml:"description,omitempty"`
	ForSale         *bool   `json:"for_sale,omitempty" yaml:"for_sale,omitempty"`
	RegionalPricing *bool   `json:"regional_pricing,omitempty" yaml:"regional_pricing,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the fields the patch sets, in comparison order.
func (p Patch) Fields() []Field {
	var fields []Field
	if p.Name != nil {
		fields = append(fields, FieldName)
	}
	if p.Price != nil {
		fields = append(fields, FieldPrice)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.ForSale != nil {
		fields = append(fields, FieldForSale)
	}
	if p.RegionalPricing != nil {
		fields = append(fields, FieldRegionalPricing)
	}
	return fields
}

// Apply returns r with the patch applied.
func (p Patch) Apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Price != nil {
		r.Price = *p.Price
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.ForSale != nil {
		r.ForSale = *p.ForSale
	}
	if p.RegionalPricing != nil {
		r.RegionalPricing = *p.RegionalPricing
	}
	return r
}
