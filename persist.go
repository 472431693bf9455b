package fspt

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Save writes the tree in the binary little-endian format of spec.md §6:
// header, tree record, box, importance, then every node in pre-order,
// optionally followed by each leaf's raw samples, then trailing
// criterion-args/score-args blocks. On any short write it returns false
// (spec.md §6's "success flag") together with a *PersistError wrapping
// ErrIOShortWrite that gives the reason.
func (t *Tree) Save(w io.Writer, includeSamples bool) (bool, error) {
	stats := t.Stats()

	if err := writeLE(w, fileHeader{Magic: formatMagic, Version: formatVersion}); err != nil {
		return false, err
	}
	if err := writeLE(w, treeRecord{
		D:              int32(t.d),
		NNodes:         int32(stats.NNodes),
		Depth:          int32(stats.MaxDepth),
		RootVolume:     t.rootVolume,
		IncludeSamples: boolToInt32(includeSamples),
	}); err != nil {
		return false, err
	}
	if err := writeLE(w, []float32(t.box)); err != nil {
		return false, err
	}
	if err := writeLE(w, t.importance); err != nil {
		return false, err
	}

	if len(t.nodes) > 0 {
		if err := t.writeNode(w, 0, includeSamples); err != nil {
			return false, err
		}
	}

	if err := writeConfigBlock(w, true, formatVersion, t.lastFitConfig); err != nil {
		return false, err
	}
	if err := writeConfigBlock(w, true, formatVersion, t.scoreConfig); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tree) writeNode(w io.Writer, idx int32, includeSamples bool) error {
	n := &t.nodes[idx]
	rec := nodeRecord{
		NSamples: int32(n.nSamples),
		NEmpty:   n.nEmpty,
		Depth:    int32(n.depth),
		Cause:    int32(n.cause),
		Volume:   n.volume,
		Score:    n.score,
	}
	if n.kind == KindInner {
		rec.Tag = tagInner
		rec.SplitFeature = int32(n.splitFeature)
		rec.SplitValue = n.splitValue
	} else {
		rec.Tag = tagLeaf
	}
	if err := writeLE(w, rec); err != nil {
		return err
	}

	if n.kind == KindInner {
		if err := t.writeNode(w, n.left, includeSamples); err != nil {
			return err
		}
		return t.writeNode(w, n.right, includeSamples)
	}
	if includeSamples && n.nSamples > 0 {
		return writeLE(w, t.leafRows(idx))
	}
	return nil
}

// Load reads a tree previously written by Save. The criterion and score
// strategies are supplied by the caller, nil selecting GiniCriterion and
// DensityScore (they are not persisted — only their trailing config blocks
// are, as a diagnostic record spec.md §6 names "criterion-args block" /
// "score-args block").
func Load(r io.Reader, criterion Criterion, score Score) (*Tree, error) {
	var hdr fileHeader
	if err := readLE(r, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != formatMagic {
		return nil, &PersistError{Op: "load", Detail: "bad magic", Err: ErrIOShortRead}
	}

	var tr treeRecord
	if err := readLE(r, &tr); err != nil {
		return nil, err
	}

	box := make(Box, 2*tr.D)
	if err := readLE(r, box); err != nil {
		return nil, err
	}
	importance := make([]float32, tr.D)
	if err := readLE(r, importance); err != nil {
		return nil, err
	}

	if criterion == nil {
		criterion = GiniCriterion{}
	}
	if score == nil {
		score = DensityScore{}
	}
	t := &Tree{
		d:          int(tr.D),
		box:        box,
		importance: importance,
		criterion:  criterion,
		score:      score,
		rootVolume: tr.RootVolume,
		fitted:     true,
	}

	includeSamples := tr.IncludeSamples != 0
	if tr.NNodes > 0 {
		if _, err := t.readNode(r, -1, includeSamples); err != nil {
			return nil, err
		}
	}

	if cfg, ok, err := readConfigBlock(r, formatVersion, FitConfig{}); err != nil {
		return nil, err
	} else if ok {
		t.lastFitConfig = cfg.(FitConfig)
	}
	if cfg, ok, err := readConfigBlock(r, formatVersion, ScoreConfig{}); err != nil {
		return nil, err
	} else if ok {
		t.scoreConfig = cfg.(ScoreConfig)
	}

	return t, nil
}

func (t *Tree) readNode(r io.Reader, parent int32, includeSamples bool) (int32, error) {
	var rec nodeRecord
	if err := readLE(r, &rec); err != nil {
		return -1, err
	}
	idx := int32(len(t.nodes))
	n := Node{
		depth:    int(rec.Depth),
		nSamples: int(rec.NSamples),
		nEmpty:   rec.NEmpty,
		volume:   rec.Volume,
		cause:    RefusalCause(rec.Cause),
		score:    rec.Score,
		parent:   parent,
		left:     -1,
		right:    -1,
	}
	if rec.Tag == tagInner {
		n.kind = KindInner
		n.splitFeature = int(rec.SplitFeature)
		n.splitValue = rec.SplitValue
	} else {
		n.kind = KindLeaf
	}
	t.nodes = append(t.nodes, n)

	if rec.Tag == tagInner {
		left, err := t.readNode(r, idx, includeSamples)
		if err != nil {
			return -1, err
		}
		right, err := t.readNode(r, idx, includeSamples)
		if err != nil {
			return -1, err
		}
		t.nodes[idx].left = left
		t.nodes[idx].right = right
		return idx, nil
	}

	if includeSamples && n.nSamples > 0 {
		rows := make([]float32, n.nSamples*t.d)
		if err := readLE(r, rows); err != nil {
			return -1, err
		}
		start := t.nPoints
		t.points = append(t.points, rows...)
		t.nPoints += n.nSamples
		t.nodes[idx].rowStart = start
		t.nodes[idx].rowEnd = t.nPoints
	}
	return idx, nil
}

// writeConfigBlock writes a trailing block prefixed by contains/version/size
// as required by spec.md §6, so a future reader that doesn't recognize this
// version can skip forward by Size bytes.
func writeConfigBlock(w io.Writer, contains bool, version int32, record any) error {
	payload, err := encodeFixed(record)
	if err != nil {
		return err
	}
	hdr := configBlockHeader{Contains: boolToInt32(contains), Version: version, Size: int64(len(payload))}
	if err := writeLE(w, hdr); err != nil {
		return err
	}
	if !contains {
		return nil
	}
	return writeLE(w, payload)
}

// readConfigBlock reads a trailing block; if the block's version does not
// match wantVersion, it seeks forward by Size and reports ok=false rather
// than erroring, per spec.md §6's recoverable VersionMismatch handling.
func readConfigBlock(r io.Reader, wantVersion int32, zero any) (any, bool, error) {
	var hdr configBlockHeader
	if err := readLE(r, &hdr); err != nil {
		if err == io.EOF {
			return zero, false, nil
		}
		return zero, false, err
	}
	if hdr.Contains == 0 {
		return zero, false, nil
	}
	if hdr.Version != wantVersion {
		if err := discard(r, hdr.Size); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	payload := make([]byte, hdr.Size)
	if err := readLE(r, payload); err != nil {
		return zero, false, err
	}
	out, err := decodeFixed(payload, zero)
	if err != nil {
		return zero, false, nil
	}
	return out, true, nil
}

func discard(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		return &PersistError{Op: "load", Detail: "short read skipping stale config block", Err: ErrIOShortRead}
	}
	return err
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func writeLE(w io.Writer, v any) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return &PersistError{Op: "save", Detail: err.Error(), Err: ErrIOShortWrite}
	}
	return nil
}

func readLE(r io.Reader, v any) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &PersistError{Op: "load", Detail: "unexpected end of stream", Err: ErrIOShortRead}
		}
		return err
	}
	return nil
}

// encodeFixed/decodeFixed (de)serialize a FitConfig or ScoreConfig as a raw
// fixed-width record for the trailing config blocks. rand.Rand state is
// intentionally not persisted: the block exists for diagnostics (spec.md
// §6 calls it a "raw record of the current struct"), and Rand is a
// caller-supplied RNG handle rather than a threshold; a FitConfig read back
// by Load has a nil Rand.
func encodeFixed(record any) ([]byte, error) {
	switch v := record.(type) {
	case FitConfig:
		plain := fitConfigWire{
			MaxDepth: int32(v.MaxDepth), MinSamples: int32(v.MinSamples),
			MinVolumeP: v.MinVolumeP, MinLengthP: v.MinLengthP,
			MaxTriesP: v.MaxTriesP, MaxFeaturesP: v.MaxFeaturesP,
			GiniGainThresh: v.GiniGainThresh, MaxConsecutiveGainViolations: int32(v.MaxConsecutiveGainViolations),
			MiddleSplit: boolToInt32(v.MiddleSplit), MultiThreads: boolToInt32(v.MultiThreads),
			UniformityTestLevel: int32(v.UniformityTestLevel), UnfAlpha: v.UnfAlpha,
		}
		return marshalFixed(plain)
	case ScoreConfig:
		plain := scoreConfigWire{
			ExponentialNormalization: boolToInt32(v.ExponentialNormalization),
			CalibrationScore:         v.CalibrationScore,
			CalibrationNSamplesP:     v.CalibrationNSamplesP,
			CalibrationVolumeP:       v.CalibrationVolumeP,
			VerifyNNodesPThresh:      v.VerifyNNodesPThresh,
			VerifyDensityThresh:      v.VerifyDensityThresh,
		}
		return marshalFixed(plain)
	}
	return nil, &ArgumentError{Detail: "unsupported config block record"}
}

func decodeFixed(payload []byte, zero any) (any, error) {
	switch zero.(type) {
	case FitConfig:
		var w fitConfigWire
		if err := unmarshalFixed(payload, &w); err != nil {
			return zero, err
		}
		return FitConfig{
			MaxDepth: int(w.MaxDepth), MinSamples: int(w.MinSamples),
			MinVolumeP: w.MinVolumeP, MinLengthP: w.MinLengthP,
			MaxTriesP: w.MaxTriesP, MaxFeaturesP: w.MaxFeaturesP,
			GiniGainThresh: w.GiniGainThresh, MaxConsecutiveGainViolations: int(w.MaxConsecutiveGainViolations),
			MiddleSplit: w.MiddleSplit != 0, MultiThreads: w.MultiThreads != 0,
			UniformityTestLevel: UniformityTestLevel(w.UniformityTestLevel), UnfAlpha: w.UnfAlpha,
		}, nil
	case ScoreConfig:
		var w scoreConfigWire
		if err := unmarshalFixed(payload, &w); err != nil {
			return zero, err
		}
		return ScoreConfig{
			ExponentialNormalization: w.ExponentialNormalization != 0,
			CalibrationScore:         w.CalibrationScore,
			CalibrationNSamplesP:     w.CalibrationNSamplesP,
			CalibrationVolumeP:       w.CalibrationVolumeP,
			VerifyNNodesPThresh:      w.VerifyNNodesPThresh,
			VerifyDensityThresh:      w.VerifyDensityThresh,
		}, nil
	}
	return zero, &ArgumentError{Detail: "unsupported config block record"}
}

// fitConfigWire and scoreConfigWire are fixed-width, Rand-free mirrors of
// FitConfig/ScoreConfig safe to pass to encoding/binary.
type fitConfigWire struct {
	MaxDepth                     int32
	MinSamples                   int32
	MinVolumeP                   float64
	MinLengthP                   float64
	MaxTriesP                    float32
	MaxFeaturesP                 float32
	GiniGainThresh               float64
	MaxConsecutiveGainViolations int32
	MiddleSplit                  int32
	MultiThreads                 int32
	UniformityTestLevel          int32
	UnfAlpha                     float64
}

type scoreConfigWire struct {
	ExponentialNormalization int32
	CalibrationScore         float64
	CalibrationNSamplesP     float64
	CalibrationVolumeP       float64
	VerifyNNodesPThresh      float64
	VerifyDensityThresh      float64
}

func marshalFixed(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, &PersistError{Op: "save", Detail: err.Error(), Err: ErrIOShortWrite}
	}
	return buf.Bytes(), nil
}

func unmarshalFixed(payload []byte, v any) error {
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, v); err != nil {
		return &PersistError{Op: "load", Detail: err.Error(), Err: ErrIOShortRead}
	}
	return nil
}
