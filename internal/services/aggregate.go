package services

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
)

const fanOutLimit = 8

// LessonContext is a lesson together with its place in the hierarchy. Main
// and Class are nil when they could not be found.
type LessonContext struct {
	Lesson *types.Lesson `json:"lesson"`
	Main   *types.Main   `json:"main"`
	Class  *types.Class  `json:"class"`
}

type lessonResolver struct {
	lessons repos.LessonRepo
	mains   repos.MainRepo
	classes repos.ClassRepo
}

// resolve fetches each lesson and its parents concurrently. The result is
// index-aligned with ids; an entry is nil when the lesson is gone or, unless
// includeUnpublished is set, not published. Any store error fails the call.
func (r lessonResolver) resolve(ctx context.Context, ids []uuid.UUID, includeUnpublished bool) ([]*LessonContext, error) {
	out := make([]*LessonContext, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			dbc := dbctx.Context{Ctx: gctx}
			l, err := r.lessons.Get(dbc, id)
			if err != nil {
				return err
			}
			if l == nil || (!includeUnpublished && !l.IsPublished()) {
				return nil
			}
			lc := &LessonContext{Lesson: l}

			parents, pctx := errgroup.WithContext(gctx)
			parents.Go(func() error {
				m, err := r.mains.Get(dbctx.Context{Ctx: pctx}, l.MainID)
				lc.Main = m
				return err
			})
			if l.ClassID != nil {
				parents.Go(func() error {
					c, err := r.classes.Get(dbctx.Context{Ctx: pctx}, *l.ClassID)
					lc.Class = c
					return err
				})
			}
			if err := parents.Wait(); err != nil {
				return err
			}
			out[i] = lc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
