package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostgresSamplesAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresSamplesRepo(db, zap.NewNop())

	s := models.Sample{
		Timestamp: 1000,
		Accel:     models.Vec3{X: 1, Y: 2, Z: 3},
		Gyro:      models.Vec3{X: 4, Y: 5, Z: 6},
		Context:   "in_hand",
	}
	mock.ExpectExec(`INSERT INTO samples`).
		WithArgs(int64(1000), 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, nil, nil, "in_hand").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Append(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSamplesAppend_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresSamplesRepo(db, zap.NewNop())

	mock.ExpectExec(`INSERT INTO samples`).WillReturnError(errors.New("disk full"))

	err = repo.Append(context.Background(), models.Sample{Timestamp: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert sample")
}

func TestPostgresSamplesRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresSamplesRepo(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{"timestamp", "ax", "ay", "az", "gx", "gy", "gz", "lat", "lng", "context"}).
		AddRow(int64(2000), 0.0, 0.0, 9.8, 0.0, 0.0, 0.0, 10.0, 20.0, "face_down").
		AddRow(int64(1000), 0.0, 0.0, 19.0, 0.0, 0.0, 0.0, nil, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM samples\s+ORDER BY timestamp DESC, id DESC\s+LIMIT \$1`).
		WithArgs(30).
		WillReturnRows(rows)

	samples, err := repo.Recent(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, int64(2000), samples[0].Timestamp)
	assert.Equal(t, "face_down", samples[0].Context)
	require.NotNil(t, samples[0].Lat)
	assert.Equal(t, 10.0, *samples[0].Lat)
	assert.Nil(t, samples[1].Lat)
	assert.Equal(t, "", samples[1].Context)
	require.NoError(t, mock.ExpectationsWereMet())
}
