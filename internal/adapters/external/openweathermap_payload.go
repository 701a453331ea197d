package external

import "encoding/json"

// lenientFloat decodes a JSON number and ignores anything else, so a
// mistyped field reads as absent instead of failing the whole payload
type lenientFloat struct {
	value *float64
}

func (f *lenientFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		f.value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		f.value = nil
		return nil
	}
	f.value = &v
	return nil
}

// Ptr returns the decoded value or nil
func (f lenientFloat) Ptr() *float64 {
	return f.value
}

type owmCondition struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type owmCurrentPayload struct {
	Name string `json:"name"`
	Sys  *struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp      lenientFloat `json:"temp"`
		FeelsLike lenientFloat `json:"feels_like"`
		TempMin   lenientFloat `json:"temp_min"`
		TempMax   lenientFloat `json:"temp_max"`
	} `json:"main"`
	Weather  []owmCondition `json:"weather"`
	Timezone lenientFloat   `json:"timezone"`
}

type owmForecastStep struct {
	Dt   int64 `json:"dt"`
	Main *struct {
		Temp lenientFloat `json:"temp"`
	} `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastPayload struct {
	City *struct {
		Timezone lenientFloat `json:"timezone"`
	} `json:"city"`
	List []owmForecastStep `json:"list"`
}

func (p *owmForecastPayload) utcOffset(fallback int) int {
	if p.City != nil {
		if v := p.City.Timezone.Ptr(); v != nil {
			return int(*v)
		}
	}
	return fallback
}

func (p *owmForecastPayload) steps() []ForecastStep {
	steps := make([]ForecastStep, 0, len(p.List))
	for _, item := range p.List {
		step := ForecastStep{Timestamp: item.Dt}
		if item.Main != nil {
			step.TempC = item.Main.Temp.Ptr()
		}
		if len(item.Weather) > 0 {
			step.Condition = &StepCondition{
				Icon:        item.Weather[0].Icon,
				Description: item.Weather[0].Description,
			}
		}
		steps = append(steps, step)
	}
	return steps
}

type owmOneCallPayload struct {
	TimezoneOffset lenientFloat `json:"timezone_offset"`
	Daily          []struct {
		Dt   int64 `json:"dt"`
		Temp *struct {
			Min lenientFloat `json:"min"`
			Max lenientFloat `json:"max"`
		} `json:"temp"`
		Weather []owmCondition `json:"weather"`
	} `json:"daily"`
}
