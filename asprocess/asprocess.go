// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// The asprocess package watches blindftp's parent process and runs a
// cleanup callback instead of the process being orphaned mid-transfer,
// e.g. when a supervisor that launched a sync or receive run is killed
// without first sending blindftp a signal.
package asprocess

import (
	"os"
	"time"

	"github.com/blindftp/blindftp/logger"
)

// CheckParentInterval is the recommended interval to check the parent pid.
const CheckParentInterval = time.Second * 1

// Cleanup runs once, when the parent process disappears.
type Cleanup func()

// Watch starts a goroutine that polls the parent pid every interval and
// invokes callback the first time it changes (or becomes 1, meaning the
// process was reparented to init). ctx may be nil.
// @remark callback is expected to cancel the run's context, not to call
// os.Exit directly, so in-flight publishes get a chance to finish.
func Watch(ctx logger.Context, interval time.Duration, callback Cleanup) {
	v := &aspContext{ctx: ctx, interval: interval, callback: callback}
	v.WatchParent()
}

type aspContext struct {
	ctx      logger.Context
	interval time.Duration
	callback Cleanup
}

func (v *aspContext) WatchParent() {
	ppid := os.Getppid()

	go func() {
		for {
			if pid := os.Getppid(); pid == 1 || pid != ppid {
				logger.E(v.ctx, "quit for parent problem, ppid is", pid)

				if v.callback != nil {
					v.callback()
				}
				return
			}

			time.Sleep(v.interval)
		}
	}()
	logger.T(v.ctx, "parent process watching, ppid is", ppid)
}
