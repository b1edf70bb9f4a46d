package evtrack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evtrack-backend/lib/browser"
	"evtrack-backend/lib/selector"
)

// AttachmentSlot names one of the upload widgets on the profile page.
type AttachmentSlot string

const (
	SlotPhoto     AttachmentSlot = "photo"
	SlotSignature AttachmentSlot = "signature"
	SlotCopyOfId  AttachmentSlot = "copyOfId"
)

var slotContainers = map[AttachmentSlot]string{
	SlotPhoto:     "uppy-photo",
	SlotSignature: "uppy-signature",
	SlotCopyOfId:  "uppy-copyOfId",
}

const uploadProbeTimeout = 5 * time.Second

type Attachment struct {
	Slot     AttachmentSlot
	Filename string
	Mime     string
	Data     []byte
}

// attachFiles uploads each attachment into its widget. Uploads are best
// effort: a failed slot is logged and the surrounding save continues.
func (c *Client) attachFiles(ctx context.Context, page *browser.Page, attachments []Attachment) {
	for _, attachment := range attachments {
		if err := c.attachFile(ctx, page, attachment); err != nil {
			slog.Warn("attachment upload failed",
				"slot", attachment.Slot, "filename", attachment.Filename, "err", err)
		}
	}
}

func (c *Client) attachFile(ctx context.Context, page *browser.Page, attachment Attachment) error {
	containerId, ok := slotContainers[attachment.Slot]
	if !ok {
		return fmt.Errorf("unknown attachment slot %q", attachment.Slot)
	}

	container, _, ok := (selector.Chain{{Kind: selector.Id, Value: containerId}}).Find(page.Doc.Selection)
	if !ok {
		return fmt.Errorf("no %s widget on page", containerId)
	}

	input, _, ok := (selector.Chain{{Kind: selector.Css, Value: `input[type="file"]`}}).Find(container)
	if !ok {
		return fmt.Errorf("%s widget has no file input", containerId)
	}

	target := container.AttrOr("data-upload-url", "")
	if target == "" {
		target = page.Url.String()
	}

	_, err := c.Session.UploadFile(ctx, target,
		input.AttrOr("name", "file"),
		attachment.Filename, attachment.Data,
		map[string]string{
			"uuid": page.Url.Query().Get("uuid"),
			"slot": string(attachment.Slot),
		})
	if err != nil {
		return err
	}

	// probe the widget's hidden field for the stored file reference
	ctx, cancel := context.WithTimeout(ctx, uploadProbeTimeout)
	defer cancel()
	return c.Session.WaitFor(ctx, 0, func(ctx context.Context) (bool, error) {
		refreshed, err := c.Session.Navigate(ctx, page.Url.String())
		if err != nil {
			return false, err
		}
		widget := refreshed.Doc.Find("#" + containerId)
		hidden := widget.Find(`input[type="hidden"]`)
		return hidden.Length() > 0 && hidden.AttrOr("value", "") != "", nil
	})
}
