package services

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"studioops_go/models"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakePutter struct {
	key  string
	body []byte
}

func (p *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.key = *in.Key
	p.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	return rows
}

func TestBuildAssignmentWorkbook(t *testing.T) {
	a := existingClass("a1", "inst-x", "2024-06-10", "09:00", "10:00")
	a.PaymentAmount = 500
	b := existingClass("a2", "inst-x", "2024-06-11", "09:00", "10:30")
	b.PaymentAmount = 250
	c := existingClass("a3", "inst-x", "2024-06-12", "09:00", "10:00")
	c.PaymentAmount = 999
	c.ClassStatus = models.ClassCancelled

	f, err := BuildAssignmentWorkbook([]models.ClassAssignment{a, b, c}, map[string]string{"inst-x": "Asha"})
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 5)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2024-06-10", rows[1][0])
	assert.Equal(t, "Monday", rows[1][1])
	assert.Equal(t, "Asha", rows[1][5])
	assert.Equal(t, "90", rows[2][4])
	assert.Equal(t, "Total", rows[4][0])
	assert.Equal(t, "3 classes", rows[4][1])
	assert.Equal(t, "150", rows[4][4])
	assert.Equal(t, "750", rows[4][11])
}

func TestExportArchive(t *testing.T) {
	ctx := context.Background()
	store := newServiceStore(t)
	seedAssignment(t, store, "inst-e", "2024-06-10", "09:00", "10:00")
	seedAssignment(t, store, "inst-e", "2024-07-01", "09:00", "10:00")

	svc := NewExportService(NewAssignmentService(store), NewCatalog(store), "ap-south-1", "")
	_, err := svc.Archive(ctx, "inst-e", "", "")
	assert.ErrorIs(t, err, ErrExportDisabled)

	putter := &fakePutter{}
	svc.s3 = putter
	svc.bucket = "studio-exports"
	svc.now = func() time.Time { return time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC) }

	key, err := svc.Archive(ctx, "inst-e", "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, "exports/assignments/inst-e/2024-06-01_2024-06-30_20240702T100000.xlsx", key)
	assert.Equal(t, key, putter.key)

	rows := readSheet(t, putter.body)
	require.Len(t, rows, 3)
	assert.Equal(t, "inst-e", rows[1][5])
	assert.Equal(t, "1 classes", rows[2][1])
}
