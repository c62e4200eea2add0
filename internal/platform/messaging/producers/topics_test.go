package producers

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	readErrs   []error
	partitions []kafka.Partition
	created    []kafka.TopicConfig
	createErr  error
	reads      int
}

func (f *fakeAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	f.reads++
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		return nil, err
	}
	return f.partitions, nil
}

func (f *fakeAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	f.created = append(f.created, topics...)
	return f.createErr
}

func TestEnsureTopic(t *testing.T) {
	t.Run("existing topic", func(t *testing.T) {
		admin := &fakeAdmin{partitions: []kafka.Partition{{Topic: "charge_outcomes"}}}

		require.NoError(t, ensureTopic(admin, topicSpec{Name: "charge_outcomes"}, 0, newTestLogger()))
		assert.Empty(t, admin.created)
		assert.Equal(t, 1, admin.reads)
	})

	t.Run("retries then finds topic", func(t *testing.T) {
		admin := &fakeAdmin{
			readErrs:   []error{errors.New("leader not available")},
			partitions: []kafka.Partition{{Topic: "charge_outcomes"}},
		}

		require.NoError(t, ensureTopic(admin, topicSpec{Name: "charge_outcomes"}, 0, newTestLogger()))
		assert.Empty(t, admin.created)
		assert.Equal(t, 2, admin.reads)
	})

	t.Run("creates missing topic with defaults", func(t *testing.T) {
		admin := &fakeAdmin{}

		require.NoError(t, ensureTopic(admin, topicSpec{Name: "charge_outcomes_dlq"}, 0, newTestLogger()))
		require.Len(t, admin.created, 1)
		assert.Equal(t, "charge_outcomes_dlq", admin.created[0].Topic)
		assert.Equal(t, 1, admin.created[0].NumPartitions)
		assert.Equal(t, 1, admin.created[0].ReplicationFactor)
	})

	t.Run("create failure", func(t *testing.T) {
		admin := &fakeAdmin{createErr: errors.New("not controller")}

		err := ensureTopic(admin, topicSpec{Name: "x", NumPartitions: 3, ReplicationFactor: 2}, 0, newTestLogger())
		require.Error(t, err)
		assert.Equal(t, 3, admin.created[0].NumPartitions)
	})
}
