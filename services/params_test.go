package services

import (
	"net/url"
	"testing"

	"tlc-ingest/models"
)

func TestResolveParamsDefaults(t *testing.T) {
	p := ResolveParams(url.Values{})
	want := models.Params{Year: "2024", Month: "01", TaxiType: "yellow"}
	if p != want {
		t.Errorf("ResolveParams(empty) = %+v; want %+v", p, want)
	}
}

func TestResolveParamsLowercasesType(t *testing.T) {
	q, _ := url.ParseQuery("year=2023&month=07&type=GrEeN")
	p := ResolveParams(q)
	if p.TaxiType != "green" {
		t.Errorf("TaxiType: got %q, want green", p.TaxiType)
	}
	if p.Year != "2023" || p.Month != "07" {
		t.Errorf("Period: got %s", p.Period())
	}
}

func TestResolveParamsKeepsPresentEmptyValue(t *testing.T) {
	q, _ := url.ParseQuery("year=&type=fhv")
	p := ResolveParams(q)
	if p.Year != "" {
		t.Errorf("Year: got %q, want empty", p.Year)
	}
	if p.Month != "01" {
		t.Errorf("Month: got %q, want default 01", p.Month)
	}
	if p.TaxiType != "fhv" {
		t.Errorf("TaxiType: got %q, want fhv passed through", p.TaxiType)
	}
}
