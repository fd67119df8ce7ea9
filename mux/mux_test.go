// Copyright 2024 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mux

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axilmar/netmsg/internal/workerpool"
	"github.com/axilmar/netmsg/internal/xerrors"
)

// osPipe returns a plain os.Pipe, used in these tests as a simple
// readable/writable fd pair independent of the iopipe package under
// test elsewhere.
func osPipe() (*os.File, *os.File, error) {
	return os.Pipe()
}

func TestAddRemoveValidation(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	defer m.Close()

	err = m.Add(Resource(999), nil)
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.InvalidOperationList))

	err = m.Add(Resource(999), []OpCallback{{Op: Read, Callback: nil}})
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.EmptyCallback))

	err = m.Add(Resource(999), []OpCallback{
		{Op: Read, Callback: func(*Multiplexer, Resource, Operation) {}},
		{Op: Read, Callback: func(*Multiplexer, Resource, Operation) {}},
	})
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.InvalidOperationList))

	noop := func(*Multiplexer, Resource, Operation) {}
	require.NoError(t, m.Add(Resource(999), []OpCallback{{Op: Read, Callback: noop}}))

	err = m.Add(Resource(999), []OpCallback{{Op: Write, Callback: noop}})
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.AlreadyRegistered))

	require.NoError(t, m.Remove(Resource(999)))
	err = m.Remove(Resource(999))
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.NotFound))
}

func TestPollEmptyAndTimeout(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	defer m.Close()

	r, err := m.Poll(10)
	require.NoError(t, err)
	require.Equal(t, Empty, r)

	noop := func(*Multiplexer, Resource, Operation) {}
	pr, pw, err := osPipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	require.NoError(t, m.Add(Resource(pr.Fd()), []OpCallback{{Op: Read, Callback: noop}}))
	r, err = m.Poll(20)
	require.NoError(t, err)
	require.Equal(t, Timeout, r)
}

func TestPollDispatchesOnReadiness(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	defer m.Close()

	pr, pw, err := osPipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	var fired int32
	var wg sync.WaitGroup
	wg.Add(1)
	cb := func(mx *Multiplexer, r Resource, op Operation) {
		atomic.AddInt32(&fired, 1)
		buf := make([]byte, 1)
		pr.Read(buf)
		wg.Done()
	}
	require.NoError(t, m.Add(Resource(pr.Fd()), []OpCallback{{Op: Read, Callback: cb}}))

	_, err = pw.Write([]byte{1})
	require.NoError(t, err)

	res, err := m.Poll(1000)
	require.NoError(t, err)
	require.Equal(t, Ready, res)
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestPollDispatchesThroughDispatcher(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	defer m.Close()

	pool := workerpool.New("mux-test", nil)
	m.SetDispatcher(pool)

	pr, pw, err := osPipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	callerGoroutine := make(chan bool, 1)
	cb := func(mx *Multiplexer, r Resource, op Operation) {
		buf := make([]byte, 1)
		pr.Read(buf)
		// a dispatched callback never runs on the goroutine calling Poll
		callerGoroutine <- false
	}
	require.NoError(t, m.Add(Resource(pr.Fd()), []OpCallback{{Op: Read, Callback: cb}}))

	_, err = pw.Write([]byte{1})
	require.NoError(t, err)

	res, err := m.Poll(1000)
	require.NoError(t, err)
	require.Equal(t, Ready, res)

	select {
	case ranOnCaller := <-callerGoroutine:
		require.False(t, ranOnCaller)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never ran the callback")
	}
}

func TestStopCausesPollToReturnPromptly(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	defer m.Close()

	noop := func(*Multiplexer, Resource, Operation) {}
	pr, pw, err := osPipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()
	require.NoError(t, m.Add(Resource(pr.Fd()), []OpCallback{{Op: Read, Callback: noop}}))

	done := make(chan Result, 1)
	go func() {
		r, _ := m.Poll(60 * 1000) // effectively "forever" for the test
		done <- r
	}()

	time.Sleep(20 * time.Millisecond)
	m.Stop()

	select {
	case r := <-done:
		require.Equal(t, Stopped, r)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not wake a blocked Poll in time")
	}
}
