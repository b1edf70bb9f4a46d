package evtrack

import (
	"context"
	"fmt"
	"net/url"

	"evtrack-backend/lib/selector"

	"go.opentelemetry.io/otel/attribute"
)

// VehicleInput mirrors the vehicle form on the edit page's vehicles tab.
// Either a VIN or a registration number must be present.
type VehicleInput struct {
	NumberPlate    string
	VehicleType    string
	Make           string
	Model          string
	Year           string
	Colour         string
	Vin            string
	EngineNumber   string
	LicenceDiscNr  string
	LicenceExpiry  string
	DocumentNumber string
	Comments       string
}

// Validate enforces the VIN-or-plate rule before any page is touched.
func (in VehicleInput) Validate() error {
	if in.Vin == "" && in.NumberPlate == "" {
		return fmt.Errorf("vehicle needs a vin or a number plate")
	}
	return nil
}

func (in VehicleInput) fields() []field {
	return []field{
		textField("number_plate", "vehicleRegistrationNumber", in.NumberPlate),
		textField("vehicle_type", "vehicleType", in.VehicleType),
		textField("make", "vehicleMake", in.Make),
		textField("model", "vehicleModel", in.Model),
		textField("year", "vehicleYear", in.Year),
		textField("colour", "vehicleColour", in.Colour),
		textField("vin", "vehicleVin", in.Vin),
		textField("engine_number", "engineNumber", in.EngineNumber),
		textField("licence_disc_number", "licenseNumber", in.LicenceDiscNr),
		textField("licence_expiry_date", "licenseDateOfExpiry", in.LicenceExpiry),
		textField("document_number", "documentNumber", in.DocumentNumber),
		textField("comments", "comments", in.Comments),
	}
}

var vehicleFormChain = selector.Chain{
	{Kind: selector.Css, Value: "#vehicles form"},
	{Kind: selector.Css, Value: "form[action*=\"vehicle\"]"},
}

// AddVehicle creates a vehicle under a visitor's record.
func (c *Client) AddVehicle(ctx context.Context, uuid string, input VehicleInput) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "AddVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	return c.saveVehicle(ctx, uuid, input)
}

// UpdateVehicle edits the visitor's existing vehicle entry. The form
// carries the current values, so only non-empty inputs change anything.
func (c *Client) UpdateVehicle(ctx context.Context, uuid string, input VehicleInput) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "UpdateVehicle")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	return c.saveVehicle(ctx, uuid, input)
}

func (c *Client) saveVehicle(ctx context.Context, uuid string, input VehicleInput) (SaveResult, error) {
	if err := input.Validate(); err != nil {
		return SaveResult{}, err
	}

	page, err := c.editPage(ctx, uuid)
	if err != nil {
		return SaveResult{}, err
	}
	if err := requireTab(page, "vehicles"); err != nil {
		return SaveResult{}, err
	}

	form, _, ok := vehicleFormChain.Find(page.Doc.Selection)
	if !ok {
		return SaveResult{}, fmt.Errorf("no vehicle form on edit page")
	}

	overrides := url.Values{}
	if err := applyFields(form, input.fields(), overrides); err != nil {
		return SaveResult{}, err
	}

	result, _, err := c.saveForm(ctx, page, form, overrides)
	return result, err
}
