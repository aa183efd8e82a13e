package pricelist

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"timbercalc/core/determinism"
	"timbercalc/core/pricing"
	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

// hclDocument is the HCL layout of a price list:
//
//	lengths = [8, 10, 12]
//
//	girth_range {
//	  start = 0
//	  end   = 18
//	}
//
//	price "G_0.0-18.0_L_8.0" {
//	  value = 120
//	}
type hclDocument struct {
	Lengths []float64  `hcl:"lengths"`
	Ranges  []hclRange `hcl:"girth_range,block"`
	Prices  []hclPrice `hcl:"price,block"`
}

type hclRange struct {
	Start float64 `hcl:"start"`
	End   float64 `hcl:"end"`
}

type hclPrice struct {
	Key   string  `hcl:"key,label"`
	Value float64 `hcl:"value"`
}

func decodeHCL(src []byte) (pricing.Data, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, "price_list.hcl")
	if diags.HasErrors() {
		return pricing.Data{}, errors.Parsing("Invalid price list file", diagError(diags))
	}

	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return pricing.Data{}, errors.Parsing("Invalid price list file", diagError(diags))
	}

	d := pricing.Data{
		UnitPrices:   make(map[string]float64, len(doc.Prices)),
		GirthRanges:  make([]types.GirthRange, 0, len(doc.Ranges)),
		LengthValues: append(make([]float64, 0, len(doc.Lengths)), doc.Lengths...),
	}
	for _, r := range doc.Ranges {
		d.GirthRanges = append(d.GirthRanges, types.GirthRange{Start: r.Start, End: r.End})
	}
	for _, p := range doc.Prices {
		if _, dup := d.UnitPrices[p.Key]; dup {
			return pricing.Data{}, errors.Validationf("duplicate price for %s", p.Key)
		}
		d.UnitPrices[p.Key] = p.Value
	}
	return d, nil
}

func encodeHCL(d pricing.Data) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	lengths := make([]cty.Value, 0, len(d.LengthValues))
	for _, l := range d.LengthValues {
		lengths = append(lengths, cty.NumberFloatVal(l))
	}
	if len(lengths) == 0 {
		body.SetAttributeValue("lengths", cty.ListValEmpty(cty.Number))
	} else {
		body.SetAttributeValue("lengths", cty.ListVal(lengths))
	}

	for _, r := range d.GirthRanges {
		body.AppendNewline()
		rb := body.AppendNewBlock("girth_range", nil).Body()
		rb.SetAttributeValue("start", cty.NumberFloatVal(r.Start))
		rb.SetAttributeValue("end", cty.NumberFloatVal(r.End))
	}

	for _, k := range determinism.SortedKeys(d.UnitPrices) {
		body.AppendNewline()
		pb := body.AppendNewBlock("price", []string{k}).Body()
		pb.SetAttributeValue("value", cty.NumberFloatVal(d.UnitPrices[k]))
	}
	return f.Bytes()
}

func diagError(diags hcl.Diagnostics) error {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if d.Subject != nil {
			line = d.Subject.Start.Line
		}
		msgs = append(msgs, fmt.Sprintf("line %d: %s", line, d.Summary))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
