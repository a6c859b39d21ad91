// Package gcsupload publishes rendered images to Google Cloud Storage.
package gcsupload

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Uploader struct {
	gcs    *storage.Client
	bucket string
}

func New(gcs *storage.Client, bucket string) *Uploader {
	return &Uploader{
		gcs:    gcs,
		bucket: bucket,
	}
}

// ObjectName is the object a render of sceneFile through cameraName is stored
// under, with the given extension.
func ObjectName(sceneFile, cameraName, ext string) string {
	base := strings.TrimSuffix(path.Base(sceneFile), path.Ext(sceneFile))
	return path.Join("renders", base, cameraName+"."+strings.TrimPrefix(ext, "."))
}

// Upload writes data to object, replacing any existing object of that name.
// It returns the generation of the new object.
func (u *Uploader) Upload(ctx context.Context, object, contentType string, data []byte) (int64, error) {
	tracer := otel.Tracer("whitted/gcsupload")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Uploader.Upload")
	defer span.End()

	span.SetAttributes(
		attribute.String("bucket", u.bucket),
		attribute.String("object", object),
		attribute.Int64("bytes", int64(len(data))),
	)

	w := u.gcs.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	// Disable chunking.  Renders are small enough to send in one request.
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		w.Close()
		return 0, fmt.Errorf("while writing to object writer: %w", err)
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("while closing object writer: %w", err)
	}

	generation := w.Attrs().Generation
	glog.Infof("Uploaded gs://%s/%s (generation %d)", u.bucket, object, generation)
	return generation, nil
}
