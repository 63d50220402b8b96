package models

type Sender string

const (
	SenderCustomer  Sender = "customer"
	SenderAssistant Sender = "assistant"
)

type ChatTurn struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}
