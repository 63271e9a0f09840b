// Package densitymap renders byte-diversity maps of arbitrary files.
//
// # Overview
//
// A density map lays a logical pixel grid over a file. Every pixel owns a
// contiguous byte region; sampling a pixel reads a small window of its
// region and scores how many distinct byte values the window holds. Scores
// run from 1 (every byte equal, as in zero padding) to 8 (every byte
// distinct, as in compressed or encrypted data) and are drawn on a color
// ramp, so structure inside the file becomes visible at a glance.
//
// # Quick Start
//
//	s, err := densitymap.Start(ctx, "disk.img")
//	if err != nil {
//	    return err
//	}
//	defer s.Cancel()
//
//	// Every pixel sampled once
//	if err := s.WaitInitialPass(ctx); err != nil {
//	    return err
//	}
//
//	snap, err := s.Snapshot()
//	if err != nil {
//	    return err
//	}
//	snap.Image(densitymap.DefaultGradient).SavePNG("disk.png")
//
// # Sampling
//
// The grid is laid out column-major over the file: pixel (x, y) has index
// x*H + y and owns bytes [i*size/(W*H), (i+1)*size/(W*H)). The initial pass
// visits every pixel once, in a random order split across the workers.
// Refinement passes then revisit every pixel at a fresh random position
// inside its region, and each pixel keeps the exact mean of its scores.
// Reads that fail are counted and skipped; they never stop a session.
//
// # Sessions
//
// A Session runs until Cancel, until its Start context ends, or until the
// limit set with WithMaxPasses. Snapshot, PixelDetail, Peek and Progress
// may be called from any goroutine while it runs. An Engine keeps at most
// one session per file.
//
// # Colors
//
// A Gradient blends from Start at score 1 to End at score 8 and draws
// pixels without a successful sample in Unknown. Blending is plain sRGB
// unless Blend selects linear RGB, CIE Lab or HCL.
//
// # Export
//
// Export samples a file in a fresh session at an arbitrary resolution and
// returns the rendered Pixmap, optionally scaled and with a legend.
//
// # Logging
//
// The package is silent by default. Use SetLogger or WithLogger to route
// session lifecycle events to a log/slog logger.
package densitymap
