// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package indicator_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/fibercore/internal/indicator"
)

func TestIndicatorFreeWhenUnused(t *testing.T) {
	var ind indicator.Indicator
	if !ind.IsFree() {
		t.Fatal("new Indicator: want IsFree")
	}
}

func TestIndicatorNotFreeWhileLocked(t *testing.T) {
	var ind indicator.Indicator
	tok := ind.Lock()
	if ind.IsFree() {
		t.Fatal("locked Indicator: want not free")
	}
	ind.Unlock(tok)
	if !ind.IsFree() {
		t.Fatal("unlocked Indicator: want free")
	}
}

func TestIndicatorManyConcurrentReaders(t *testing.T) {
	var ind indicator.Indicator
	const readers = 32
	var wg sync.WaitGroup
	start := make(chan struct{})
	release := make(chan struct{})

	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			<-start
			tok := ind.Lock()
			<-release
			ind.Unlock(tok)
		}()
	}

	close(start)
	// Give readers a chance to all acquire before checking IsFree, since
	// there is no synchronization point that guarantees all are locked.
	for {
		if !ind.IsFree() {
			break
		}
	}
	close(release)
	wg.Wait()

	if !ind.IsFree() {
		t.Fatal("after all readers unlocked: want IsFree")
	}
}
