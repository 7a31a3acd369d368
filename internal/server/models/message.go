package models

import "time"

// Message is one logged chat event. Recipient is empty for broadcasts.
// Body holds the payload exactly as it went over the wire: plaintext for
// broadcasts, base64 ciphertext for encrypted private messages. The log
// never sees decrypted private-message content.
type Message struct {
	ID        string
	Sender    string
	Recipient string
	Body      string
	SentAt    time.Time
}
