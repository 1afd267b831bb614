package attachments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type memoryStore struct {
	objects  map[string][]byte
	types    map[string]string
	storeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Store(_ context.Context, key, contentType string, r io.Reader) (int64, error) {
	if m.storeErr != nil {
		return 0, m.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return int64(len(data)), nil
}

func (m *memoryStore) URLFor(_ context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type countingQuota struct {
	counts map[string]int64
}

func (q *countingQuota) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	q.counts[scope]++
	return q.counts[scope] <= limit, q.counts[scope], nil
}

func newService(t *testing.T, store FileStore, quota Quota, limit int64) Service {
	t.Helper()
	svc, err := NewService(store, quota, limit, 1, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func buyer() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.RoleBuyer}
}

func upload(entity enums.AttachmentEntity, name, contentType string, body []byte) UploadInput {
	return UploadInput{
		Entity:      entity,
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
		Body:        bytes.NewReader(body),
	}
}

func TestUploadStoresUnderEntityPrefix(t *testing.T) {
	store := newMemoryStore()
	svc := newService(t, store, nil, 0)
	actor := buyer()

	ref, err := svc.Upload(context.Background(), actor, upload(enums.AttachmentEntityDispute, `C:\photos\Broken Pad.JPG`, "", []byte("jpeg-bytes")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref.FileKey, "dispute/"+actor.UserID.String()+"/"))
	assert.True(t, strings.HasSuffix(ref.FileKey, ".jpg"))
	assert.Equal(t, "Broken Pad.JPG", ref.Name)
	assert.Equal(t, "image/jpeg", ref.ContentType)
	assert.Equal(t, int64(10), ref.SizeBytes)
	assert.Equal(t, "https://files.test/"+ref.FileKey, ref.URL)
	assert.Equal(t, []byte("jpeg-bytes"), store.objects[ref.FileKey])
}

func TestUploadRejections(t *testing.T) {
	svc := newService(t, newMemoryStore(), nil, 0)
	ctx := context.Background()
	big := bytes.Repeat([]byte("x"), 1024*1024+1)

	cases := []struct {
		name  string
		actor types.Actor
		input UploadInput
		code  pkgerrors.Code
	}{
		{"anonymous", types.Actor{}, upload(enums.AttachmentEntityOrderRequest, "a.pdf", "application/pdf", []byte("pdf")), pkgerrors.CodeUnauthorized},
		{"seller", types.Actor{UserID: uuid.New(), Role: enums.RoleSeller}, upload(enums.AttachmentEntityOrderRequest, "a.pdf", "application/pdf", []byte("pdf")), pkgerrors.CodeForbidden},
		{"unknown entity", buyer(), upload(enums.AttachmentEntity("offer"), "a.pdf", "application/pdf", []byte("pdf")), pkgerrors.CodeValidation},
		{"blank name", buyer(), upload(enums.AttachmentEntityOrderRequest, "  ", "application/pdf", []byte("pdf")), pkgerrors.CodeValidation},
		{"executable", buyer(), upload(enums.AttachmentEntityOrderRequest, "run.exe", "application/x-msdownload", []byte("MZ")), pkgerrors.CodeValidation},
		{"empty", buyer(), upload(enums.AttachmentEntityOrderRequest, "a.pdf", "application/pdf", nil), pkgerrors.CodeValidation},
		{"too large", buyer(), upload(enums.AttachmentEntityOrderRequest, "a.pdf", "application/pdf", big), pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.actor, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestUploadUnderstatedSizeIsRemoved(t *testing.T) {
	store := newMemoryStore()
	svc := newService(t, store, nil, 0)

	in := upload(enums.AttachmentEntityOrderRequest, "scan.pdf", "application/pdf", bytes.Repeat([]byte("x"), 1024*1024+10))
	in.SizeBytes = 100
	_, err := svc.Upload(context.Background(), buyer(), in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, store.objects)
}

func TestUploadQuota(t *testing.T) {
	quota := &countingQuota{counts: map[string]int64{}}
	svc := newService(t, newMemoryStore(), quota, 2)
	actor := buyer()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Upload(ctx, actor, upload(enums.AttachmentEntityOrderRequest, "a.png", "image/png", []byte("png")))
		require.NoError(t, err)
	}
	_, err := svc.Upload(ctx, actor, upload(enums.AttachmentEntityOrderRequest, "a.png", "image/png", []byte("png")))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))

	_, err = svc.Upload(ctx, buyer(), upload(enums.AttachmentEntityOrderRequest, "a.png", "image/png", []byte("png")))
	assert.NoError(t, err, "quota is per user")
}

func TestUploadStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.storeErr = errors.New("bucket unavailable")
	svc := newService(t, store, nil, 0)

	_, err := svc.Upload(context.Background(), buyer(), upload(enums.AttachmentEntityDispute, "a.png", "image/png", []byte("png")))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
