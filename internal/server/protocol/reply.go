package protocol

import (
	"fmt"
	"strings"
)

// SystemPrefix starts every protocol/control reply from the server.
const SystemPrefix = "SYSTEM: "

// System frames a control message.
func System(format string, args ...any) string {
	return SystemPrefix + fmt.Sprintf(format, args...)
}

// Broadcast frames a broadcast chat line as seen by recipients.
func Broadcast(sender, text string) string {
	return fmt.Sprintf("[%s] %s", sender, text)
}

// PMFrom frames a private message as seen by the recipient. For encrypted
// messages the payload is the base64 ciphertext, opaque to the server.
func PMFrom(sender, payload string) string {
	return fmt.Sprintf("[PM from %s] %s", sender, payload)
}

// PMTo frames the delivery echo sent back to the sender of a private
// message.
func PMTo(target, payload string) string {
	return fmt.Sprintf("[PM to %s] %s", target, payload)
}

// SplitPMFrom recognizes a PMFrom frame and extracts the sender and
// payload. Used by clients to find lines that need decryption.
func SplitPMFrom(line string) (sender, payload string, ok bool) {
	const prefix = "[PM from "
	if !strings.HasPrefix(line, prefix) {
		return "", "", false
	}
	rest := line[len(prefix):]
	i := strings.Index(rest, "] ")
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+2:], true
}
