package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	engine "payroll-auditor/core/audit"
	"payroll-auditor/core/storage/mocks"
)

const testBucket = "payroll-audits"

const payrollCSV = "employee_id,full_name,gross_pay,net_pay\n" +
	"E001,John Smith,5000.00,4000.00\n" +
	"E002,Jane Doe,6200.50,4800.25\n"

func newTestService(client *mocks.Client) *Service {
	return NewService(client, testBucket, zap.NewNop(), engine.DefaultConfig())
}

func objectInfoCh(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}

func TestServiceCompare_StoresUploadsAndResult(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, testBucket).Return(true, nil)
	client.On("PutObject", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	svc := newTestService(client)
	comparison, err := svc.Compare(context.Background(),
		Upload{Filename: "current.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "previous.csv", Data: []byte(payrollCSV)},
		Options{FuzzyMatching: true},
	)
	require.NoError(t, err)

	_, uuidErr := uuid.Parse(comparison.ID)
	assert.NoError(t, uuidErr)
	assert.Equal(t, "current.csv", comparison.FileA)
	assert.Equal(t, "previous.csv", comparison.FileB)
	require.NotNil(t, comparison.Result)
	assert.Equal(t, engine.RiskClean, comparison.Result.Summary.Risk)

	// Two uploads plus the result document.
	client.AssertNumberOfCalls(t, "PutObject", 3)
	client.AssertCalled(t, "PutObject", mock.Anything, testBucket,
		"uploads/"+comparison.ID+"/a_current.csv", mock.Anything, mock.Anything, mock.Anything)
	client.AssertCalled(t, "PutObject", mock.Anything, testBucket,
		"results/"+comparison.ID+".json", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceCompare_CreatesMissingBucket(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, testBucket).Return(false, nil)
	client.On("MakeBucket", mock.Anything, testBucket, mock.Anything).Return(nil)
	client.On("PutObject", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	svc := newTestService(client)
	_, err := svc.Compare(context.Background(),
		Upload{Filename: "a.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "b.csv", Data: []byte(payrollCSV)},
		Options{},
	)
	require.NoError(t, err)
	client.AssertCalled(t, "MakeBucket", mock.Anything, testBucket, mock.Anything)
}

func TestServiceCompare_RejectsUnknownExtension(t *testing.T) {
	svc := newTestService(new(mocks.Client))
	_, err := svc.Compare(context.Background(),
		Upload{Filename: "payroll.txt", Data: []byte("x")},
		Upload{Filename: "b.csv", Data: []byte(payrollCSV)},
		Options{},
	)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestServiceCompare_RejectsMalformedFile(t *testing.T) {
	svc := newTestService(new(mocks.Client))
	_, err := svc.Compare(context.Background(),
		Upload{Filename: "a.xlsx", Data: []byte("not a workbook")},
		Upload{Filename: "b.csv", Data: []byte(payrollCSV)},
		Options{},
	)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestServiceCompare_RejectsBadOptions(t *testing.T) {
	svc := newTestService(new(mocks.Client))

	_, err := svc.Compare(context.Background(),
		Upload{Filename: "a.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "b.csv", Data: []byte(payrollCSV)},
		Options{EarningsTolerance: "not-a-number"},
	)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Compare(context.Background(),
		Upload{Filename: "a.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "b.csv", Data: []byte(payrollCSV)},
		Options{NameThreshold: "1.5"},
	)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestServiceCompare_AppliesOverrides(t *testing.T) {
	fileB := strings.Replace(payrollCSV, "5000.00", "5000.50", 1)

	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, testBucket).Return(true, nil)
	client.On("PutObject", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	svc := newTestService(client)

	// Default tolerance flags the 0.50 difference.
	strict, err := svc.Compare(context.Background(),
		Upload{Filename: "a.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "b.csv", Data: []byte(fileB)},
		Options{},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, strict.Result.Discrepancies)

	// A wider tolerance absorbs it.
	loose, err := svc.Compare(context.Background(),
		Upload{Filename: "a.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "b.csv", Data: []byte(fileB)},
		Options{EarningsTolerance: "1.00"},
	)
	require.NoError(t, err)
	assert.Empty(t, loose.Result.Discrepancies)
}

func TestServiceResult(t *testing.T) {
	id := uuid.NewString()
	stored := `{"id":"` + id + `"}`

	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, testBucket, "results/"+id+".json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte(stored))), nil)

	svc := newTestService(client)
	data, err := svc.Result(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, stored, string(data))
}

func TestServiceResult_MalformedID(t *testing.T) {
	svc := newTestService(new(mocks.Client))
	_, err := svc.Result(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// noSuchKeyReader mimics the lazy minio object handle: the missing-key error
// only surfaces on the first read.
type noSuchKeyReader struct{}

func (noSuchKeyReader) Read([]byte) (int, error) {
	return 0, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
}

func (noSuchKeyReader) Close() error { return nil }

func TestServiceResult_NotFound(t *testing.T) {
	id := uuid.NewString()

	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, testBucket, "results/"+id+".json", mock.Anything).
		Return(noSuchKeyReader{}, nil)

	svc := newTestService(client)
	_, err := svc.Result(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceList(t *testing.T) {
	idA := uuid.NewString()
	idB := uuid.NewString()

	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, testBucket, mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
		return opts.Prefix == "results/"
	})).Return(objectInfoCh(
		"results/"+idA+".json",
		"results/not-a-comparison.txt",
		"results/"+idB+".json",
	))

	svc := newTestService(client)
	ids, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{idA, idB}, ids)
}

func TestServiceDelete(t *testing.T) {
	id := uuid.NewString()

	client := new(mocks.Client)
	client.On("RemoveObject", mock.Anything, testBucket, mock.Anything, mock.Anything).Return(nil)
	client.On("ListObjects", mock.Anything, testBucket, mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
		return opts.Prefix == "uploads/"+id+"/"
	})).Return(objectInfoCh(
		"uploads/"+id+"/a_current.csv",
		"uploads/"+id+"/b_previous.csv",
	))

	svc := newTestService(client)
	require.NoError(t, svc.Delete(context.Background(), id))

	client.AssertCalled(t, "RemoveObject", mock.Anything, testBucket, "results/"+id+".json", mock.Anything)
	client.AssertCalled(t, "RemoveObject", mock.Anything, testBucket, "uploads/"+id+"/a_current.csv", mock.Anything)
	client.AssertNumberOfCalls(t, "RemoveObject", 3)
}

func TestServiceDelete_MalformedID(t *testing.T) {
	svc := newTestService(new(mocks.Client))
	err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestServiceStatus(t *testing.T) {
	svc := newTestService(new(mocks.Client))
	status := svc.Status()

	assert.Equal(t, "online", status["status"])
	assert.Equal(t, engine.Version, status["version"])
	formats, ok := status["supported_formats"].([]string)
	require.True(t, ok)
	assert.Contains(t, formats, "spreadsheet")
	assert.Contains(t, formats, "document")
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "payroll.csv", safeName("payroll.csv"))
	assert.Equal(t, "payroll.csv", safeName("../../payroll.csv"))
	assert.Equal(t, "payroll.csv", safeName(`C:\uploads\payroll.csv`))
	assert.Equal(t, "upload", safeName(""))
}

func TestComparisonJSONShape(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, testBucket).Return(true, nil)
	client.On("PutObject", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	svc := newTestService(client)
	comparison, err := svc.Compare(context.Background(),
		Upload{Filename: "a.csv", Data: []byte(payrollCSV)},
		Upload{Filename: "b.csv", Data: []byte(payrollCSV)},
		Options{},
	)
	require.NoError(t, err)

	out, err := json.Marshal(comparison)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "id")
	assert.Contains(t, decoded, "file_a")
	assert.Contains(t, decoded, "result")
}
