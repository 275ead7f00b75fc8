package fsadapter

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/hostfs/virtio9pd/p9proto"
)

// walkExisting walks from the root through names into a freshly
// allocated fid. A zero-length names clones the root fid instead of
// descending, per the standard fid-clone usage of Twalk. On a partial
// walk the provisional fid is clunked before returning, per the
// invariant that a fid failing to bind must not outlive its walk.
func (a *Adapter) walkExisting(ctx context.Context, names []string) (uint32, p9proto.Qid, error) {
	newfid := a.client.AllocFid()
	qids, err := a.client.Walk(ctx, a.rootFid, newfid, names)
	if err != nil {
		if clunkErr := a.client.Clunk(ctx, newfid); clunkErr != nil {
			err = multierror.Append(err, clunkErr)
		}
		return 0, p9proto.Qid{}, classify("walk", err)
	}
	if len(names) == 0 {
		return newfid, a.rootQid, nil
	}
	return newfid, qids[len(qids)-1], nil
}

// walkToParent resolves the directory that will contain a newly
// created entry named by the final component of names, returning a
// fid bound to that parent. An empty parent component list means the
// new entry lives directly under the root.
func (a *Adapter) walkToParent(ctx context.Context, parent []string) (uint32, error) {
	fid, _, err := a.walkExisting(ctx, parent)
	return fid, err
}
