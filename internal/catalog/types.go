package catalog

// #region document
// Document is the on-disk form of a problem instance.
type Document struct {
	PowerfulStart int         `yaml:"powerful_start" json:"powerful_start" validate:"gte=0"`
	PowerfulCap   int         `yaml:"powerful_cap" json:"powerful_cap" validate:"gtefield=PowerfulStart"`
	PinnacleCap   int         `yaml:"pinnacle_cap" json:"pinnacle_cap" validate:"gtefield=PowerfulCap"`
	Actions       []ActionDoc `yaml:"actions" json:"actions" validate:"required,min=1,max=16,dive"`
}

// ActionDoc describes one upgrade source. The drop distribution is given
// either as eight probabilities in slot order or as relative weights keyed
// by slot name.
type ActionDoc struct {
	Name         string             `yaml:"name" json:"name" validate:"required"`
	PowerfulGain int                `yaml:"powerful_gain" json:"powerful_gain" validate:"gte=0"`
	PinnacleGain int                `yaml:"pinnacle_gain" json:"pinnacle_gain" validate:"gte=0"`
	Arity        int                `yaml:"arity" json:"arity" validate:"gte=0,lte=255"`
	PMF          []float64          `yaml:"pmf,omitempty" json:"pmf,omitempty" validate:"required_without=Weights,omitempty,len=8,dive,gte=0,lte=1"`
	Weights      map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty" validate:"required_without=PMF,omitempty,dive,keys,oneof=kinetic energy power head glove chest leg class_item,endkeys,gte=0"`
}

// #endregion document
