package adapters

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// filePolicyDoc is the on-disk shape of a FilePolicySource: the blacklist as
// a sorted slice (maps don't round-trip deterministically through JSON) plus
// the pause flag.
type filePolicyDoc struct {
	Paused    bool     `json:"paused"`
	Blacklist []string `json:"blacklist"`
}

// FilePolicySource persists the blacklist/pause snapshot beyond DKG output,
// read at startup and updated atomically thereafter. It follows
// internal/tss/dkg/storage.go's tmp-file-then-rename-then-fsync idiom,
// simplified to plain JSON since this document carries no key material
// worth a CRC or AES-GCM envelope.
type FilePolicySource struct {
	mu   sync.RWMutex
	path string
	snap PolicySnapshot
}

// NewFilePolicySource loads path if it exists, or starts from an empty
// (unpaused, empty blacklist) snapshot and writes it out.
func NewFilePolicySource(path string) (*FilePolicySource, error) {
	f := &FilePolicySource{path: path}
	doc, err := readPolicyDoc(path)
	if os.IsNotExist(err) {
		f.snap = PolicySnapshot{Blacklist: map[string]struct{}{}}
		return f, f.writeLocked()
	}
	if err != nil {
		return nil, err
	}
	f.snap = docToSnapshot(doc)
	return f, nil
}

func (f *FilePolicySource) Snapshot(_ context.Context) (PolicySnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cp := PolicySnapshot{Paused: f.snap.Paused, Blacklist: make(map[string]struct{}, len(f.snap.Blacklist))}
	for k := range f.snap.Blacklist {
		cp.Blacklist[k] = struct{}{}
	}
	return cp, nil
}

// Update applies mutate to a copy of the current snapshot and persists the
// result atomically before swapping it in, so a crash mid-write never leaves
// a caller observing a half-updated blacklist.
func (f *FilePolicySource) Update(_ context.Context, mutate func(*PolicySnapshot)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := PolicySnapshot{Paused: f.snap.Paused, Blacklist: make(map[string]struct{}, len(f.snap.Blacklist))}
	for k := range f.snap.Blacklist {
		next.Blacklist[k] = struct{}{}
	}
	mutate(&next)

	prev := f.snap
	f.snap = next
	if err := f.writeLocked(); err != nil {
		f.snap = prev
		return err
	}
	return nil
}

func (f *FilePolicySource) writeLocked() error {
	doc := snapshotToDoc(f.snap)
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func readPolicyDoc(path string) (filePolicyDoc, error) {
	var doc filePolicyDoc
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func docToSnapshot(doc filePolicyDoc) PolicySnapshot {
	snap := PolicySnapshot{Paused: doc.Paused, Blacklist: make(map[string]struct{}, len(doc.Blacklist))}
	for _, addr := range doc.Blacklist {
		snap.Blacklist[addr] = struct{}{}
	}
	return snap
}

func snapshotToDoc(snap PolicySnapshot) filePolicyDoc {
	doc := filePolicyDoc{Paused: snap.Paused, Blacklist: make([]string, 0, len(snap.Blacklist))}
	for addr := range snap.Blacklist {
		doc.Blacklist = append(doc.Blacklist, addr)
	}
	sort.Strings(doc.Blacklist)
	return doc
}
