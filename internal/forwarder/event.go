package forwarder

import (
	"errors"

	"github.com/aws/aws-lambda-go/events"

	"github.com/shineum/ses-forwarder/internal/email"
)

// ErrNoRecords is returned for a notification that carries no receipt record.
var ErrNoRecords = errors.New("event contains no SES records")

// IncomingFromEvent extracts the message ID and recipients of the first
// receipt record. Later records are ignored.
func IncomingFromEvent(evt events.SimpleEmailEvent) (email.Incoming, error) {
	if len(evt.Records) == 0 {
		return email.Incoming{}, ErrNoRecords
	}

	ses := evt.Records[0].SES
	return email.Incoming{
		MessageID:  ses.Mail.MessageID,
		Recipients: ses.Receipt.Recipients,
	}, nil
}
