package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/campus"
	"campus/internal/cloudinary"
	"campus/internal/metrics"
	"campus/internal/queue"
	"campus/internal/store"
)

type fakeUploader struct {
	err  error
	seen []string
}

func (f *fakeUploader) UploadBase64(_ context.Context, data string) (*cloudinary.UploadResult, error) {
	f.seen = append(f.seen, data)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudinary.UploadResult{SecureURL: "https://cdn.example/img.jpg"}, nil
}

func TestImageWorkerAttachesImage(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := campus.New(mem, campus.Options{})
	item, err := svc.LostFound.Report(ctx, campus.LostFoundInput{ItemName: "Wallet", Status: "found"})
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	up := &fakeUploader{}
	w := &ImageWorker{Items: svc.LostFound, Uploader: up, Metrics: m}

	msg, err := queue.NewMessage(campus.ImageJobType, campus.ImageJob{ItemID: item.ID, Image: "aGVsbG8="})
	require.NoError(t, err)
	w.Handle(ctx, msg)

	got, err := svc.LostFound.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.jpg", got.ImageURL)
	assert.Equal(t, []string{"aGVsbG8="}, up.seen)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkerJobs.WithLabelValues(campus.ImageJobType, "ok")))
}

func TestImageWorkerFailures(t *testing.T) {
	ctx := context.Background()
	svc := campus.New(store.NewMemory(), campus.Options{})
	m := metrics.New(prometheus.NewRegistry())
	up := &fakeUploader{}
	w := &ImageWorker{Items: svc.LostFound, Uploader: up, Metrics: m}

	missing, _ := queue.NewMessage(campus.ImageJobType, campus.ImageJob{ItemID: "gone", Image: "x"})
	w.Handle(ctx, missing)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkerJobs.WithLabelValues(campus.ImageJobType, "store_failed")))

	empty, _ := queue.NewMessage(campus.ImageJobType, campus.ImageJob{ItemID: "x"})
	w.Handle(ctx, empty)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkerJobs.WithLabelValues(campus.ImageJobType, "invalid")))

	other, _ := queue.NewMessage("checkin", map[string]string{})
	w.Handle(ctx, other)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkerJobs.WithLabelValues("checkin", "skipped")))

	up.err = errors.New("cloudinary down")
	job, _ := queue.NewMessage(campus.ImageJobType, campus.ImageJob{ItemID: "x", Image: "y"})
	w.Handle(ctx, job)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkerJobs.WithLabelValues(campus.ImageJobType, "upload_failed")))
	assert.Len(t, up.seen, 2)
}

func TestImageWorkerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := campus.New(store.NewMemory(), campus.Options{})
	item, err := svc.LostFound.Report(ctx, campus.LostFoundInput{ItemName: "Keys", Status: "lost"})
	require.NoError(t, err)

	q := queue.NewInMemory(4)
	msg, err := queue.NewMessage(campus.ImageJobType, campus.ImageJob{ItemID: item.ID, Image: "aGVsbG8="})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	w := &ImageWorker{Items: svc.LostFound, Uploader: &fakeUploader{}}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, q) }()

	require.Eventually(t, func() bool {
		got, err := svc.LostFound.Get(ctx, item.ID)
		return err == nil && got.ImageURL != ""
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
