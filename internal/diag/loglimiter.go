// Derived from the loglimiter package of thermal-recorder
// (github.com/TheCacophonyProject/thermal-recorder).
//
// thermal-recorder - record thermal video footage of warm moving objects
// Copyright (C) 2019, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package diag

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// LogLimiter suppresses a log message if the same message was printed within
// the interval. Suppressed repeats are counted and reported when the same
// message next gets through.
type LogLimiter struct {
	mu            sync.Mutex
	interval      time.Duration
	logger        *log.Logger
	nowFunc       func() time.Time
	previousEntry string
	previousTime  time.Time
	suppressed    int
}

// NewLogLimiter returns a LogLimiter writing to the standard logger.
func NewLogLimiter(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		logger:   log.Default(),
		nowFunc:  time.Now,
	}
}

// SetLogger redirects output, mainly for tests.
func (l *LogLimiter) SetLogger(logger *log.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

func (l *LogLimiter) Printf(format string, v ...any) {
	l.Print(fmt.Sprintf(format, v...))
}

func (l *LogLimiter) Print(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if s == l.previousEntry && now.Sub(l.previousTime) < l.interval {
		l.suppressed++
		return
	}

	if l.suppressed > 0 && s == l.previousEntry {
		l.logger.Printf("%s (suppressed %d repeats)", s, l.suppressed)
	} else {
		l.logger.Print(s)
	}
	l.previousTime = now
	l.previousEntry = s
	l.suppressed = 0
}

// Suppressed returns the number of repeats dropped since the last print.
func (l *LogLimiter) Suppressed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suppressed
}
