// internal/weather/qweather.go
package weather

// Ответы QWeather v7. Все числовые значения приходят строками.

type coded interface {
	status() string
}

type envelope struct {
	Code       string `json:"code"`
	UpdateTime string `json:"updateTime"`
}

func (e *envelope) status() string {
	return e.Code
}

type nowResponse struct {
	envelope
	Now struct {
		ObsTime   string `json:"obsTime"`
		Temp      string `json:"temp"`
		Icon      string `json:"icon"`
		Text      string `json:"text"`
		WindDir   string `json:"windDir"`
		WindScale string `json:"windScale"`
		Humidity  string `json:"humidity"`
		Precip    string `json:"precip"`
	} `json:"now"`
}

type hourlyResponse struct {
	envelope
	Hourly []struct {
		FxTime    string `json:"fxTime"`
		Temp      string `json:"temp"`
		Icon      string `json:"icon"`
		Text      string `json:"text"`
		WindDir   string `json:"windDir"`
		WindScale string `json:"windScale"`
		Humidity  string `json:"humidity"`
		Pop       string `json:"pop"`
		Precip    string `json:"precip"`
	} `json:"hourly"`
}

type dailyResponse struct {
	envelope
	Daily []struct {
		FxDate       string `json:"fxDate"`
		TempMax      string `json:"tempMax"`
		TempMin      string `json:"tempMin"`
		IconDay      string `json:"iconDay"`
		TextDay      string `json:"textDay"`
		IconNight    string `json:"iconNight"`
		TextNight    string `json:"textNight"`
		WindDirDay   string `json:"windDirDay"`
		WindScaleDay string `json:"windScaleDay"`
		Humidity     string `json:"humidity"`
		Precip       string `json:"precip"`
	} `json:"daily"`
}

type warningResponse struct {
	envelope
	Warning []struct {
		ID        string `json:"id"`
		Sender    string `json:"sender"`
		PubTime   string `json:"pubTime"`
		Title     string `json:"title"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
		Status    string `json:"status"`
		Severity  string `json:"severity"`
		Type      string `json:"type"`
		TypeName  string `json:"typeName"`
		Text      string `json:"text"`
	} `json:"warning"`
}
