package eventlistener

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

var errStop = errors.New("stop")

type fixture struct {
	store *ledger.Memory
	mint  solana.PublicKey
	other solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewMemory()
	prog, err := launchpad.NewProgram(store, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, prog.Initialize(ctx, solana.NewWallet().PublicKey()))

	creator := solana.NewWallet().PublicKey()
	a, err := prog.CreateToken(ctx, launchpad.CreateTokenParams{Creator: creator, Name: "Alpha", Symbol: "ALP"})
	require.NoError(t, err)
	b, err := prog.CreateToken(ctx, launchpad.CreateTokenParams{Creator: creator, Name: "Beta", Symbol: "BET"})
	require.NoError(t, err)

	trader := solana.NewWallet().PublicKey()
	require.NoError(t, store.Airdrop(ctx, trader, 10*launchpad.LamportsPerSol))
	for _, mint := range []solana.PublicKey{a.Mint, b.Mint, a.Mint} {
		_, err := prog.BuyToken(ctx, launchpad.BuyParams{Mint: mint, Buyer: trader, SolAmount: launchpad.LamportsPerSol / 10})
		require.NoError(t, err)
	}
	return &fixture{store: store, mint: a.Mint, other: b.Mint}
}

func collect(t *testing.T, l *Listener, after uint64, f Filter, n int) []Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []Record
	err := l.Run(ctx, after, f, func(r Record) error {
		got = append(got, r)
		if len(got) == n {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	return got
}

func TestListener_CommitOrder(t *testing.T) {
	fx := newFixture(t)
	l := NewListener(fx.store, Config{PollInterval: time.Millisecond, BatchSize: 2}, zap.NewNop())

	recs := collect(t, l, 0, Filter{}, 5)
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
		if i > 0 {
			assert.Greater(t, r.Seq, recs[i-1].Seq)
		}
	}
	assert.Equal(t, []string{codec.NameCreate, codec.NameCreate, codec.NameTrade, codec.NameTrade, codec.NameTrade}, names)
}

func TestListener_Filter(t *testing.T) {
	fx := newFixture(t)
	l := NewListener(fx.store, Config{PollInterval: time.Millisecond}, zap.NewNop())

	recs := collect(t, l, 0, Filter{Names: []string{codec.NameTrade}, Mint: fx.mint}, 2)
	for _, r := range recs {
		ev, ok := r.Event.(codec.TradeEvent)
		require.True(t, ok)
		assert.Equal(t, fx.mint, ev.Mint)
	}

	// resume after the first trade
	rest := collect(t, l, recs[0].Seq, Filter{Names: []string{codec.NameTrade}, Mint: fx.mint}, 1)
	assert.Equal(t, recs[1].Seq, rest[0].Seq)
}

func TestListener_StopsOnCancel(t *testing.T) {
	fx := newFixture(t)
	l := NewListener(fx.store, Config{PollInterval: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx, 0, Filter{}, func(Record) error { return nil })
	assert.NoError(t, err)
}

func TestStream_DeliversRecords(t *testing.T) {
	fx := newFixture(t)
	l := NewListener(fx.store, Config{PollInterval: time.Millisecond}, zap.NewNop())
	srv := httptest.NewServer(NewStream(l, zap.NewNop()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?name=TradeEvent&mint=" + fx.other.String()
	conn, br, _, err := ws.Dial(ctx, url)
	require.NoError(t, err)
	defer conn.Close()

	var rd io.Reader = conn
	if br != nil {
		rd = br
		defer ws.PutReader(br)
	}
	rw := struct {
		io.Reader
		io.Writer
	}{rd, conn}

	payload, err := wsutil.ReadServerText(rw)
	require.NoError(t, err)

	var msg struct {
		Seq   uint64                 `json:"seq"`
		Name  string                 `json:"name"`
		Event map[string]interface{} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, codec.NameTrade, msg.Name)
	assert.Equal(t, fx.other.String(), msg.Event["Mint"])
	assert.Equal(t, true, msg.Event["IsBuy"])
}

func TestStream_BadQuery(t *testing.T) {
	l := NewListener(ledger.NewMemory(), Config{}, zap.NewNop())
	rec := httptest.NewRecorder()
	NewStream(l, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest("GET", "/?after=abc", nil))
	assert.Equal(t, 400, rec.Code)
}


func TestStream_EndsWhenServerContextIsCancelled(t *testing.T) {
	fx := newFixture(t)
	l := NewListener(fx.store, Config{PollInterval: time.Millisecond}, zap.NewNop())

	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := httptest.NewUnstartedServer(NewStream(l, zap.NewNop()))
	srv.Config.BaseContext = func(net.Listener) context.Context { return base }
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?after=" + strconv.FormatUint(fx.store.Head(), 10)
	conn, br, _, err := ws.Dial(ctx, url)
	require.NoError(t, err)
	defer conn.Close()
	if br != nil {
		ws.PutReader(br)
	}

	cancelBase()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err = wsutil.ReadServerText(conn)
	require.Error(t, err)
	var ne net.Error
	assert.False(t, errors.As(err, &ne) && ne.Timeout(), "stream still open: %v", err)
}
