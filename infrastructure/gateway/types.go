package gateway

type createRequest struct {
	InstanceName    string          `json:"instanceName"`
	Token           string          `json:"token,omitempty"`
	QRCode          bool            `json:"qrcode"`
	Number          string          `json:"number,omitempty"`
	Integration     string          `json:"integration"`
	RejectCall      bool            `json:"rejectCall"`
	MsgCall         string          `json:"msgCall,omitempty"`
	GroupsIgnore    bool            `json:"groupsIgnore"`
	AlwaysOnline    bool            `json:"alwaysOnline"`
	ReadMessages    bool            `json:"readMessages"`
	ReadStatus      bool            `json:"readStatus"`
	SyncFullHistory bool            `json:"syncFullHistory"`
	Webhook         *webhookRequest `json:"webhook,omitempty"`
}

type webhookRequest struct {
	URL      string   `json:"url"`
	ByEvents bool     `json:"byEvents"`
	Base64   bool     `json:"base64"`
	Events   []string `json:"events"`
}
