package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAddCustomField(t *testing.T) {
	cfg := DefaultTariffConfig()

	heating, err := cfg.AddCustomField("Heating", FieldRate, "Gcal", dec("1654.41"), dec("7.5"))
	if err != nil {
		t.Fatal(err)
	}
	if heating.ID == "" {
		t.Fatal("field id not assigned")
	}
	if got, ok := cfg.CustomReadings[heating.ID]; !ok || !got.Equal(dec("7.5")) {
		t.Fatalf("seeded reading = %s (present=%v), want 7.5", got, ok)
	}

	internet, err := cfg.AddCustomField("Internet", FieldFee, "", dec("350"), decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.CustomReadings[internet.ID]; ok {
		t.Fatal("fee field must not get a reading entry")
	}
	if internet.ID == heating.ID {
		t.Fatal("field ids must be unique")
	}

	// Insertion order is display order.
	if cfg.CustomFields[0].Name != "Heating" || cfg.CustomFields[1].Name != "Internet" {
		t.Fatalf("field order = %v", cfg.CustomFields)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid after adds: %v", err)
	}
}

func TestAddCustomField_Invalid(t *testing.T) {
	cfg := DefaultTariffConfig()

	cases := []struct {
		name    string
		field   string
		typ     FieldType
		unit    string
		price   string
		wantErr error
	}{
		{"blank name", "  ", FieldFee, "", "10", ErrEmptyFieldName},
		{"rate without unit", "Heating", FieldRate, "", "10", ErrMissingUnit},
		{"bad type", "X", FieldType("subscription"), "", "10", ErrInvalidFieldType},
		{"negative price", "X", FieldFee, "", "-1", ErrNegativePrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cfg.AddCustomField(tc.field, tc.typ, tc.unit, dec(tc.price), decimal.Zero)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
	if len(cfg.CustomFields) != 0 {
		t.Fatal("rejected fields must not be appended")
	}
}

func TestRemoveCustomField(t *testing.T) {
	cfg := DefaultTariffConfig()
	heating, _ := cfg.AddCustomField("Heating", FieldRate, "Gcal", dec("10"), decimal.Zero)
	internet, _ := cfg.AddCustomField("Internet", FieldFee, "", dec("350"), decimal.Zero)

	if err := cfg.RemoveCustomField(heating.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.CustomReadings[heating.ID]; ok {
		t.Fatal("dangling reading entry after delete")
	}
	if _, ok := cfg.CustomField(internet.ID); !ok {
		t.Fatal("unrelated field removed")
	}

	if err := cfg.RemoveCustomField("nope"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("err = %v, want ErrFieldNotFound", err)
	}
}

func TestPriceEditAffectsFutureOnly(t *testing.T) {
	cfg := DefaultTariffConfig()
	heating, _ := cfg.AddCustomField("Heating", FieldRate, "Gcal", dec("100"), decimal.Zero)
	in := EnteredValues{CustomReadings: map[string]string{heating.ID: "2"}}

	before := Calculate(cfg, in)
	if !before.CustomRecords[0].Cost.Equal(dec("200")) {
		t.Fatalf("cost = %s, want 200", before.CustomRecords[0].Cost)
	}

	// Raise the price; the earlier preview snapshot is unaffected.
	for i := range cfg.CustomFields {
		if cfg.CustomFields[i].ID == heating.ID {
			cfg.CustomFields[i].Price = dec("150")
		}
	}
	after := Calculate(cfg, in)
	if !after.CustomRecords[0].Cost.Equal(dec("300")) {
		t.Fatalf("cost after edit = %s, want 300", after.CustomRecords[0].Cost)
	}
	if !before.CustomRecords[0].Cost.Equal(dec("200")) {
		t.Fatal("historical snapshot changed by price edit")
	}
}

func TestTariffConfigValidate(t *testing.T) {
	cfg := DefaultTariffConfig()
	cfg.ElectricityRate = dec("-1")
	if err := cfg.Validate(); !errors.Is(err, ErrNegativeRate) {
		t.Fatalf("err = %v, want ErrNegativeRate", err)
	}

	cfg = DefaultTariffConfig()
	cfg.CustomFields = append(cfg.CustomFields, CustomFieldConfig{
		ID: "orphan", Name: "Heating", Type: FieldRate, Unit: "Gcal",
	})
	if err := cfg.Validate(); err == nil {
		t.Fatal("rate field without reading entry must be invalid")
	}
}

func TestClone_Independent(t *testing.T) {
	cfg := DefaultTariffConfig()
	heating, _ := cfg.AddCustomField("Heating", FieldRate, "Gcal", dec("10"), dec("5"))

	cp := cfg.Clone()
	cp.CustomReadings[heating.ID] = dec("99")
	cp.CustomFields[0].Name = "Changed"

	if !cfg.CustomReadings[heating.ID].Equal(dec("5")) {
		t.Fatal("clone shares readings map")
	}
	if cfg.CustomFields[0].Name != "Heating" {
		t.Fatal("clone shares fields slice")
	}
}
