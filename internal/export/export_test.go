package export

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	parquet "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

type fakeS3 struct {
	bucket, key string
	body        []byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	csv := "Player,First Name,Nation,Team,Position,Minutes,Goals,Save%\n" +
		"Bukayo Saka,Bukayo,eng ENG,Arsenal,FW,\"2,400\",12,N/a\n" +
		"David Raya,David,es ESP,Arsenal,GK,3420,0,71.2\n"
	f, err := frame.Read(strings.NewReader(csv))
	require.NoError(t, err)
	return dataset.FromFrame(f)
}

func TestLongRows(t *testing.T) {
	rows := LongRows(sample(t), "2024-2025", "run-1")
	require.Len(t, rows, 4)

	saka := rows[0]
	assert.Equal(t, "Bukayo Saka", saka.Player)
	assert.Equal(t, "Goals", saka.Stat)
	require.NotNil(t, saka.Value)
	assert.Equal(t, 12.0, *saka.Value)
	require.NotNil(t, saka.Minutes)
	assert.Equal(t, int64(2400), *saka.Minutes)
	assert.Equal(t, "eng ENG", *saka.Nation)

	assert.Equal(t, "Save%", rows[1].Stat)
	assert.Nil(t, rows[1].Value, "N/a becomes null")
	require.NotNil(t, rows[3].Value)
	assert.InDelta(t, 0.712, *rows[3].Value, 1e-9)
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	rows := LongRows(sample(t), "2024-2025", "run-1")
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, rows))

	got, err := parquet.Read[StatRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriteParquetAndUpload(t *testing.T) {
	fs := &fakeS3{}
	up := &Uploader{Client: fs, Bucket: "curated"}
	key := Key("epl_curated/", "2024-2025", "20250101T000000Z")
	assert.Equal(t, "epl_curated/player_stats/season=2024-2025/part-20250101T000000Z.parquet", key)

	require.NoError(t, WriteParquetAndUpload(context.Background(), LongRows(sample(t), "2024-2025", "r"), key, up))
	assert.Equal(t, "curated", fs.bucket)
	assert.Equal(t, key, fs.key)
	assert.Equal(t, "PAR1", string(fs.body[:4]))

	fs.key = ""
	require.NoError(t, WriteParquetAndUpload[StatRow](context.Background(), nil, key, up))
	assert.Empty(t, fs.key, "empty input uploads nothing")
}
