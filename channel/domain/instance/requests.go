package instance

type CreateRequest struct {
	Name     string   `json:"name"`
	Number   string   `json:"number"`
	Settings Settings `json:"settings"`
}

type ConnectRequest struct {
	Name   string `json:"-"`
	Number string `json:"number"`
}

type PresenceRequest struct {
	Name     string   `json:"-"`
	Presence Presence `json:"presence"`
}

type SendTextRequest struct {
	Name   string `json:"-"`
	Number string `json:"number"`
	Text   string `json:"text"`
}
