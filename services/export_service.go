package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"studioops_go/models"
	"studioops_go/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet       = "Assignments"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportKeyPrefix   = "exports/assignments"
	exportUploadLimit = 30 * time.Second
)

var exportHeader = []interface{}{
	"Date", "Day", "Start", "End", "Minutes", "Instructor", "Type",
	"Class status", "Instructor status", "Payment type", "Payment status", "Amount", "Batch",
}

// ErrExportDisabled is returned by Archive when no bucket is configured.
var ErrExportDisabled = errors.New("export bucket not configured")

// objectPutter is the slice of the S3 client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ExportService renders assignment listings to XLSX and optionally archives
// them to S3.
type ExportService struct {
	assignments *AssignmentService
	catalog     *Catalog
	s3          objectPutter
	bucket      string
	now         func() time.Time
}

// NewExportService loads the default AWS config for region. An empty bucket
// keeps downloads working and disables Archive.
func NewExportService(assignments *AssignmentService, catalog *Catalog, region, bucket string) *ExportService {
	svc := &ExportService{assignments: assignments, catalog: catalog, bucket: bucket, now: time.Now}
	if bucket == "" {
		return svc
	}
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(region))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; assignment archives disabled")
		svc.bucket = ""
		return svc
	}
	svc.s3 = s3.NewFromConfig(cfg)
	return svc
}

// Export renders the instructor's rows in [from, to] as an XLSX document.
func (s *ExportService) Export(ctx context.Context, instructorID, from, to string) ([]byte, error) {
	rows, err := s.assignments.ListForInstructor(ctx, instructorID, from, to)
	if err != nil {
		return nil, err
	}
	name := instructorID
	if p, err := s.catalog.Instructor(ctx, instructorID); err == nil && p != nil && p.FullName != "" {
		name = p.FullName
	}
	f, err := BuildAssignmentWorkbook(rows, map[string]string{instructorID: name})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Archive exports and uploads the workbook, returning the object key.
func (s *ExportService) Archive(ctx context.Context, instructorID, from, to string) (string, error) {
	if s.bucket == "" || s.s3 == nil {
		return "", ErrExportDisabled
	}
	data, err := s.Export(ctx, instructorID, from, to)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s_%s_%s.xlsx", exportKeyPrefix, instructorID,
		orAll(from), orAll(to), s.now().UTC().Format("20060102T150405"))

	upCtx, cancel := context.WithTimeout(ctx, exportUploadLimit)
	defer cancel()
	if _, err := s.s3.PutObject(upCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(xlsxContentType),
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": key, "bytes": len(data)}).Info("assignment export archived")
	return key, nil
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

// BuildAssignmentWorkbook writes one row per assignment followed by a totals
// row. names maps instructor ids to display names.
func BuildAssignmentWorkbook(rows []models.ClassAssignment, names map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, err
	}

	total, minutes := 0.0, 0
	for i, a := range rows {
		day := ""
		if d, ok := utils.ParseDate(a.Date); ok {
			day = utils.WeekdayName(int(d.Weekday()))
		}
		name := names[a.InstructorID]
		if name == "" {
			name = a.InstructorID
		}
		dur := utils.DurationMinutes(a.StartTime, a.EndTime)
		record := []interface{}{
			a.Date, day, a.StartTime, a.EndTime, dur, name, string(a.ScheduleType),
			string(a.ClassStatus), string(a.InstructorStatus), string(a.PaymentType), string(a.PaymentStatus),
			a.PaymentAmount, a.BatchID,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &record); err != nil {
			f.Close()
			return nil, err
		}
		if a.ClassStatus != models.ClassCancelled {
			total += a.PaymentAmount
			minutes += dur
		}
	}

	totals := []interface{}{"Total", fmt.Sprintf("%d classes", len(rows)), "", "", minutes, "", "", "", "", "", "", roundCents(total), ""}
	cell, _ := excelize.CoordinatesToCellName(1, len(rows)+2)
	if err := f.SetSheetRow(exportSheet, cell, &totals); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
