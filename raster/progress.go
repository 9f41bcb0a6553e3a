// Copyright 2015 the GoSpatial Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// licence that can be found in the LICENCE.txt file.

// Progress is the callback contract a running stage reports through, so it
// can surface progress without owning a terminal or a particular logger.

package raster

// Progress receives progress notifications from a running stage. All
// fields beyond stepNumber/totalSteps are optional (phase may be "", message
// may be ""); fraction is in [0,1]. A nil Progress is valid and a no-op.
type Progress func(phase, stepName string, stepNumber, totalSteps int, message string, fraction float64)

// Report invokes p, tolerating a nil receiver and recovering from any panic
// the callback raises, so a misbehaving progress handler can never abort
// the pipeline it's merely observing.
func (p Progress) Report(phase, stepName string, stepNumber, totalSteps int, message string, fraction float64) {
	if p == nil {
		return
	}
	defer func() { _ = recover() }()
	p(phase, stepName, stepNumber, totalSteps, message, fraction)
}
