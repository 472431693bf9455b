// Package fspt implements a Feature-Space Partitioning Tree: an
// axis-aligned binary tree that partitions a bounded d-dimensional feature
// space from a finite set of training points and, afterwards, scores any
// query point by how densely sampled its enclosing region was.
//
// A low score means a predictor bolted onto the same feature space has not
// seen enough nearby training data to be trusted on that query. The tree is
// fitted in one batch (see Fit), is read-only and concurrency-safe once
// fitted (see Predict, Decision), and can be persisted to a compact binary
// file (see Save, Load).
package fspt
