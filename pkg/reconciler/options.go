package reconciler

import (
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// options configures a reconciler.
type options struct {
	fields map[catalog.Field]bool
}

func defaultOptions() *options {
	return &options{
		fields: map[catalog.Field]bool{
			catalog.FieldName:  true,
			catalog.FieldPrice: true,
		},
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithFields sets which Record fields are compared. Name and price are
// compared by default.
func WithFields(fields ...catalog.Field) Option {
	return func(o *options) error {
		if len(fields) == 0 {
			return &errors.ValidationError{Field: "fields", Message: "at least one field must be compared"}
		}
		tracked := make(map[catalog.Field]bool, len(fields))
		for _, f := range fields {
			switch f {
			case catalog.FieldName, catalog.FieldPrice, catalog.FieldDescription, catalog.FieldForSale, catalog.FieldRegionalPricing:
				tracked[f] = true
			default:
				return &errors.ValidationError{Field: "fields", Value: f, Message: "unknown field"}
			}
		}
		o.fields = tracked
		return nil
	}
}

// WithAllFields compares every mutable field, including for-sale status,
// regional pricing and declared descriptions.
func WithAllFields() Option {
	return WithFields(catalog.AllFields()...)
}
