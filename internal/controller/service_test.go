package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/tcp/connectionmanager"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
	"gitlab.com/emaxgrid.net/internal/tcp/wire"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Warn(msg string, args ...interface{})  {}

type memoryRounds struct {
	mu      sync.Mutex
	records []*domain.RoundRecord
}

func (m *memoryRounds) SaveRound(ctx context.Context, record *domain.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryRounds) GetRounds(ctx context.Context, runID uuid.UUID) ([]*domain.RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.RoundRecord, 0, len(m.records))
	for _, record := range m.records {
		if record.RunID == runID {
			out = append(out, record)
		}
	}
	return out, nil
}

func testSpec() *domain.ModelSpecification {
	return &domain.ModelSpecification{
		NumPeriods: 3,
		Delta:      0.95,
		EduStart:   10,
		EduMax:     20,
		CoeffsA:    []float64{9.21, 0.04, 0.033, -0.0005, 0, 0},
		CoeffsB:    []float64{8.48, 0.07, 0.067, -0.001, 0.022, -0.0005},
		CoeffsEdu:  []float64{0, -4000, -15000},
		CoeffsHome: 17750,
		ShockCov: [][]float64{
			{0.2, 0, 0, 0},
			{0, 0.25, 0, 0},
			{0, 0, 1500, 0},
			{0, 0, 0, 1500},
		},
		NumDrawsEmax: 5,
		NumAgents:    10,
		Seed:         423,
		Tolerance:    1e-8,
	}
}

// runMember plays a pool member on the far end of a pipe. It acknowledges
// every task round straight into the barrier and reports the task frames it
// saw once the leave frame arrives or the connection closes.
func runMember(svc *Service, conn net.Conn, rank int, seenCh chan<- []defs.TaskData) {
	var seen []defs.TaskData
	for {
		msgType, payload, err := wire.ReadMessage(conn)
		if err != nil {
			seenCh <- seen
			return
		}
		switch msgType {
		case defs.MsgJoinAck, defs.MsgSpec:
		case defs.MsgTask:
			var task defs.TaskData
			if err := json.Unmarshal(payload, &task); err != nil {
				seenCh <- seen
				return
			}
			seen = append(seen, task)
			_ = svc.HandleTaskDone(context.Background(), defs.TaskDoneData{
				Round:        task.Round,
				Rank:         rank,
				Code:         task.Code,
				EmaxChecksum: float64(rank) + 0.5,
			})
		case defs.MsgLeave:
			seenCh <- seen
			return
		}
	}
}

// launchPool joins poolSize scripted members and returns their report
// channels along with a cleanup for the member ends.
func launchPool(t *testing.T, svc *Service, poolSize int) []chan []defs.TaskData {
	t.Helper()

	seenChs := make([]chan []defs.TaskData, poolSize)
	for i := 0; i < poolSize; i++ {
		serverConn, memberConn := net.Pipe()
		t.Cleanup(func() { memberConn.Close() })

		seenChs[i] = make(chan []defs.TaskData, 1)
		go runMember(svc, memberConn, i, seenChs[i])

		rank, err := svc.HandleJoin(context.Background(), serverConn, defs.JoinData{
			WorkerID: fmt.Sprintf("w-%d", i),
			Host:     "localhost",
		})
		require.NoError(t, err)
		require.Equal(t, i, rank)
	}
	return seenChs
}

func newTestService(t *testing.T, poolSize int, options ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(testSpec(), poolSize, connectionmanager.NewConnectionManager(nopLogger{}), nopLogger{}, options...)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsBadArguments(t *testing.T) {
	connMgr := connectionmanager.NewConnectionManager(nopLogger{})

	bad := testSpec()
	bad.NumPeriods = 0
	_, err := NewService(bad, 2, connMgr, nopLogger{})
	require.Error(t, err)

	_, err = NewService(testSpec(), 0, connMgr, nopLogger{})
	require.Error(t, err)
}

func TestPoolJoinAssignsRanksAndLaunches(t *testing.T) {
	svc := newTestService(t, 2)
	launchPool(t, svc, 2)

	status := svc.Status()
	require.True(t, status.Launched)
	require.Equal(t, 2, status.PoolSize)
	require.Len(t, status.Members, 2)
	require.Equal(t, "w-0", status.Members[0].WorkerID)
	require.Equal(t, "w-1", status.Members[1].WorkerID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.AwaitPool(ctx))
}

// laggedAckConn stalls its first write, giving a concurrent
// pool-completing join a window to overtake the ack.
type laggedAckConn struct {
	net.Conn
	once sync.Once
}

func (c *laggedAckConn) Write(p []byte) (int, error) {
	c.once.Do(func() { time.Sleep(50 * time.Millisecond) })
	return c.Conn.Write(p)
}

func TestJoinAckPrecedesSpecificationBroadcast(t *testing.T) {
	svc := newTestService(t, 2)

	serverConn0, memberConn0 := net.Pipe()
	serverConn1, memberConn1 := net.Pipe()
	t.Cleanup(func() {
		memberConn0.Close()
		memberConn1.Close()
	})

	// member 0 records the order of its first two frames
	seqCh := make(chan []byte, 1)
	go func() {
		var seq []byte
		for i := 0; i < 2; i++ {
			msgType, _, err := wire.ReadMessage(memberConn0)
			if err != nil {
				break
			}
			seq = append(seq, msgType)
		}
		seqCh <- seq
	}()
	go func() {
		for i := 0; i < 2; i++ {
			if _, _, err := wire.ReadMessage(memberConn1); err != nil {
				return
			}
		}
	}()

	joinErr := make(chan error, 2)
	go func() {
		_, err := svc.HandleJoin(context.Background(), &laggedAckConn{Conn: serverConn0}, defs.JoinData{WorkerID: "w-0", Host: "localhost"})
		joinErr <- err
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		_, err := svc.HandleJoin(context.Background(), serverConn1, defs.JoinData{WorkerID: "w-1", Host: "localhost"})
		joinErr <- err
	}()

	require.NoError(t, <-joinErr)
	require.NoError(t, <-joinErr)
	require.Equal(t, []byte{defs.MsgJoinAck, defs.MsgSpec}, <-seqCh)
}

func TestJoinRefusedAfterLaunch(t *testing.T) {
	svc := newTestService(t, 1)
	launchPool(t, svc, 1)

	serverConn, memberConn := net.Pipe()
	defer memberConn.Close()
	defer serverConn.Close()

	_, err := svc.HandleJoin(context.Background(), serverConn, defs.JoinData{WorkerID: "w-late", Host: "localhost"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already launched")
}

func TestRunRoundCollectsWholePool(t *testing.T) {
	rounds := &memoryRounds{}
	svc := newTestService(t, 3, WithRoundRepository(rounds))
	launchPool(t, svc, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := svc.RunRound(ctx, defs.TaskSolve)
	require.NoError(t, err)
	require.Len(t, results, 3)

	ranks := make(map[int]bool)
	for _, done := range results {
		require.Equal(t, 1, done.Round)
		require.Equal(t, defs.TaskSolve, done.Code)
		ranks[done.Rank] = true
	}
	require.Len(t, ranks, 3)

	// a second round advances the sequence number
	results, err = svc.RunRound(ctx, defs.TaskSolve)
	require.NoError(t, err)
	for _, done := range results {
		require.Equal(t, 2, done.Round)
	}

	stored, err := rounds.GetRounds(ctx, svc.Status().RunID)
	require.NoError(t, err)
	require.Len(t, stored, 6)
}

func TestRunRoundDiscardsStaleAcknowledgements(t *testing.T) {
	svc := newTestService(t, 2)
	launchPool(t, svc, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// a leftover acknowledgement from a round that never ran must not
	// satisfy the barrier
	require.NoError(t, svc.HandleTaskDone(ctx, defs.TaskDoneData{Round: 99, Rank: 0}))

	results, err := svc.RunRound(ctx, defs.TaskSolve)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, done := range results {
		require.Equal(t, 1, done.Round)
	}
}

func TestConcurrentSolveRoundsSerialize(t *testing.T) {
	svc := newTestService(t, 2)
	launchPool(t, svc, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// two simultaneous callers must get one complete barrier each, never a
	// shared one that starves a round of its acknowledgements
	type outcome struct {
		round int
		err   error
	}
	outcomes := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results, err := svc.RunRound(ctx, defs.TaskSolve)
			if err != nil {
				outcomes <- outcome{err: err}
				return
			}
			outcomes <- outcome{round: results[0].Round}
		}()
	}

	rounds := make(map[int]bool)
	for i := 0; i < 2; i++ {
		o := <-outcomes
		require.NoError(t, o.err)
		rounds[o.round] = true
	}
	require.Equal(t, map[int]bool{1: true, 2: true}, rounds)
}

func TestRunRoundBeforeLaunchFails(t *testing.T) {
	svc := newTestService(t, 2)

	_, err := svc.RunRound(context.Background(), defs.TaskSolve)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not launched")
}

func TestShutdownDrainsPool(t *testing.T) {
	svc := newTestService(t, 2)
	seenChs := launchPool(t, svc, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, svc.Shutdown(ctx))

	for _, seenCh := range seenChs {
		select {
		case seen := <-seenCh:
			require.NotEmpty(t, seen)
			final := seen[len(seen)-1]
			require.Equal(t, defs.TaskShutdown, final.Code)
		case <-time.After(5 * time.Second):
			t.Fatal("member never drained")
		}
	}
}
