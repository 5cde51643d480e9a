package config

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"tekkin/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Purpose names what an invocation is about to do, so Validate only demands
// the credentials that invocation needs.
type Purpose int

const (
	PurposeServe Purpose = iota
	PurposeHarvest
	PurposeMigrate
)

// Validate checks structural rules and the credentials required by purpose.
// It returns a *model.ConfigurationError listing every offending field.
func (c *Config) Validate(purpose Purpose) error {
	var fields []string

	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fieldPath(fe.Namespace()))
			}
		} else {
			return err
		}
	}

	if _, err := c.Location(); err != nil {
		fields = append(fields, "timezone")
	}

	if c.Database.Driver != "memory" && strings.TrimSpace(c.Database.URL) == "" {
		fields = append(fields, "DATABASE_URL")
	}
	if purpose == PurposeMigrate && c.Database.Driver == "memory" {
		fields = append(fields, "database.driver")
	}

	if len(fields) > 0 {
		return &model.ConfigurationError{Fields: fields}
	}
	return nil
}

// CheckoutReady reports whether Stripe checkout can be offered.
func (c *Config) CheckoutReady() bool {
	return c.Stripe.SecretKey != "" && c.Stripe.PriceID != "" && c.SiteURL != ""
}

func fieldPath(ns string) string {
	// Drop the leading "Config." of the struct namespace.
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
