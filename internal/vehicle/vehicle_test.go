package vehicle

import (
	"errors"
	"strings"
	"testing"
)

func validInput() Input {
	return Input{
		BrandName: "Toyota",
		Model:     "Prius",
		Year:      2020,
		Color:     "white",
		Price:     21000,
	}
}

func TestNewValid(t *testing.T) {
	v, err := New(validInput())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v.Brand.Name != "Toyota" || v.Model != "Prius" {
		t.Fatalf("unexpected vehicle: %+v", v)
	}
}

func TestNewTrimsWhitespace(t *testing.T) {
	in := validInput()
	in.BrandName = "  Toyota  "
	in.Model = " Prius "
	in.Color = " white "
	v, err := New(in)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v.Brand.Name != "Toyota" || v.Model != "Prius" || v.Color != "white" {
		t.Fatalf("expected trimmed fields, got %+v", v)
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"empty brand", func(in *Input) { in.BrandName = "   " }, "brand_name"},
		{"brand too long", func(in *Input) { in.BrandName = strings.Repeat("a", 101) }, "brand_name"},
		{"empty model", func(in *Input) { in.Model = "" }, "model"},
		{"model too long", func(in *Input) { in.Model = strings.Repeat("m", 101) }, "model"},
		{"year before first car", func(in *Input) { in.Year = 1885 }, "year"},
		{"empty color", func(in *Input) { in.Color = "" }, "color"},
		{"color too long", func(in *Input) { in.Color = strings.Repeat("c", 51) }, "color"},
		{"zero price", func(in *Input) { in.Price = 0 }, "price"},
		{"negative price", func(in *Input) { in.Price = -1 }, "price"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := New(in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, ve.Field)
			}
		})
	}
}

func TestBoundaryValuesAccepted(t *testing.T) {
	in := validInput()
	in.BrandName = strings.Repeat("b", 100)
	in.Model = strings.Repeat("m", 100)
	in.Color = strings.Repeat("c", 50)
	in.Year = 1886
	in.Price = 0.01
	if _, err := New(in); err != nil {
		t.Fatalf("expected boundary values accepted, got %v", err)
	}
}
