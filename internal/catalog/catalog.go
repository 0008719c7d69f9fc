// Package catalog loads problem instances from YAML or JSON files.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// #region load
// Load reads a catalog file, choosing the parser by extension, and returns a
// validated configuration.
func Load(path string) (*gear.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	case ".json":
		doc, err = ParseJSON(data)
	default:
		return nil, fmt.Errorf("read catalog: unsupported extension %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return doc.Configuration()
}

// ParseYAML decodes a YAML catalog.
func ParseYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return doc, nil
}

// ParseJSON decodes a JSON catalog. Unknown fields are ignored.
func ParseJSON(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, fmt.Errorf("parse catalog json: malformed document")
	}
	root := gjson.ParseBytes(data)
	doc := Document{
		PowerfulStart: int(root.Get("powerful_start").Int()),
		PowerfulCap:   int(root.Get("powerful_cap").Int()),
		PinnacleCap:   int(root.Get("pinnacle_cap").Int()),
	}
	root.Get("actions").ForEach(func(_, a gjson.Result) bool {
		ad := ActionDoc{
			Name:         a.Get("name").String(),
			PowerfulGain: int(a.Get("powerful_gain").Int()),
			PinnacleGain: int(a.Get("pinnacle_gain").Int()),
			Arity:        int(a.Get("arity").Int()),
		}
		if pmf := a.Get("pmf"); pmf.IsArray() {
			for _, p := range pmf.Array() {
				ad.PMF = append(ad.PMF, p.Float())
			}
		}
		if weights := a.Get("weights"); weights.IsObject() {
			ad.Weights = make(map[string]float64)
			weights.ForEach(func(k, v gjson.Result) bool {
				ad.Weights[k.String()] = v.Float()
				return true
			})
		}
		doc.Actions = append(doc.Actions, ad)
		return true
	})
	return doc, nil
}

// #endregion load

// #region convert
// Configuration validates the document and converts it.
func (d Document) Configuration() (*gear.Configuration, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: %v", gear.ErrInvalidConfig, err)
	}
	cfg := &gear.Configuration{
		PowerfulStart: d.PowerfulStart,
		PowerfulCap:   d.PowerfulCap,
		PinnacleCap:   d.PinnacleCap,
		Actions:       make([]gear.ActionSpec, len(d.Actions)),
	}
	for i, a := range d.Actions {
		pmf, err := a.distribution()
		if err != nil {
			return nil, fmt.Errorf("%w: action %q: %v", gear.ErrInvalidConfig, a.Name, err)
		}
		cfg.Actions[i] = gear.ActionSpec{
			Name:         a.Name,
			PowerfulGain: a.PowerfulGain,
			PinnacleGain: a.PinnacleGain,
			Arity:        a.Arity,
			PMF:          pmf,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a ActionDoc) distribution() ([gear.NumSlots]float64, error) {
	var pmf [gear.NumSlots]float64
	if len(a.PMF) > 0 {
		copy(pmf[:], a.PMF)
		return pmf, nil
	}
	total := 0.0
	for name, w := range a.Weights {
		slot, ok := slotByName(name)
		if !ok {
			return pmf, fmt.Errorf("unknown slot %q", name)
		}
		pmf[slot] = w
		total += w
	}
	if total <= 0 {
		return pmf, fmt.Errorf("weights sum to %v", total)
	}
	for i := range pmf {
		pmf[i] /= total
	}
	return pmf, nil
}

func slotByName(name string) (gear.Slot, bool) {
	for s := gear.Slot(0); s < gear.NumSlots; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// #endregion convert
