package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func testRecord() *uploadtypes.UploadRecord {
	return &uploadtypes.UploadRecord{
		UploadID:    "upload-1",
		Key:         "uploads/1718000000000-3f2a9c1d-model.stl",
		Bucket:      "models",
		ETag:        `"multipart-etag"`,
		Location:    "https://models.s3.amazonaws.com/uploads/model.stl",
		PartCount:   3,
		CompletedAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgres_RecordUpload(t *testing.T) {
	query := regexp.QuoteMeta(insertUploadQuery)

	tests := []struct {
		name    string
		expect  func(conn pgxmock.PgxPoolIface, rec *uploadtypes.UploadRecord)
		wantErr bool
	}{
		{
			name: "inserted",
			expect: func(conn pgxmock.PgxPoolIface, rec *uploadtypes.UploadRecord) {
				conn.ExpectExec(query).
					WithArgs(rec.UploadID, rec.Key, rec.Bucket, rec.ETag, rec.Location, rec.PartCount, rec.CompletedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "already_recorded",
			expect: func(conn pgxmock.PgxPoolIface, rec *uploadtypes.UploadRecord) {
				conn.ExpectExec(query).
					WithArgs(rec.UploadID, rec.Key, rec.Bucket, rec.ETag, rec.Location, rec.PartCount, rec.CompletedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
			},
		},
		{
			name: "exec_error",
			expect: func(conn pgxmock.PgxPoolIface, rec *uploadtypes.UploadRecord) {
				conn.ExpectExec(query).
					WithArgs(rec.UploadID, rec.Key, rec.Bucket, rec.ETag, rec.Location, rec.PartCount, rec.CompletedAt).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer conn.Close()

			rec := testRecord()
			tt.expect(conn, rec)

			err = NewPostgresWithConn(conn).RecordUpload(context.Background(), rec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "upload-1")
				assert.Contains(t, err.Error(), "connection reset")
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, conn.ExpectationsWereMet())
		})
	}
}

func TestPostgres_NilRecord(t *testing.T) {
	conn, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer conn.Close()

	assert.Error(t, NewPostgresWithConn(conn).RecordUpload(context.Background(), nil))
	assert.NoError(t, conn.ExpectationsWereMet())
}

func TestNewPostgres_EmptyDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "")
	assert.Error(t, err)
}
