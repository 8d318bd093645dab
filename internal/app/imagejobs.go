package app

import (
	"context"
	"log"

	"campus/internal/campus"
	"campus/internal/cloudinary"
	"campus/internal/metrics"
	"campus/internal/queue"
)

// Uploader stores a base64 image and returns where it lives.
type Uploader interface {
	UploadBase64(ctx context.Context, data string) (*cloudinary.UploadResult, error)
}

// ImageSetter attaches an uploaded image URL to a lost-and-found item.
type ImageSetter interface {
	SetImage(ctx context.Context, id, url string) (campus.LostFoundItem, error)
}

// ImageWorker processes lost-and-found image jobs.
type ImageWorker struct {
	Items    ImageSetter
	Uploader Uploader
	Metrics  *metrics.Metrics
}

// Run handles messages until the queue's channel closes.
func (w *ImageWorker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		w.Handle(ctx, msg)
	}
	return nil
}

// Handle uploads the image of one job and stores its URL. Failures are logged and counted;
// the job is not retried.
func (w *ImageWorker) Handle(ctx context.Context, msg queue.Message) {
	if msg.Type != campus.ImageJobType {
		log.Printf("skipping message of type %q", msg.Type)
		w.Metrics.Job(msg.Type, "skipped")
		return
	}

	var job campus.ImageJob
	if err := msg.Decode(&job); err != nil || job.ItemID == "" || job.Image == "" {
		log.Printf("malformed image job: %v", err)
		w.Metrics.Job(msg.Type, "invalid")
		return
	}
	log.Printf("processing image for item %s", job.ItemID)

	res, err := w.Uploader.UploadBase64(ctx, job.Image)
	if err != nil {
		log.Printf("upload failed for %s: %v", job.ItemID, err)
		w.Metrics.Job(msg.Type, "upload_failed")
		return
	}
	if _, err := w.Items.SetImage(ctx, job.ItemID, res.SecureURL); err != nil {
		log.Printf("attach image to %s failed: %v", job.ItemID, err)
		w.Metrics.Job(msg.Type, "store_failed")
		return
	}
	w.Metrics.Job(msg.Type, "ok")
	log.Printf("item %s image stored at %s", job.ItemID, res.SecureURL)
}
