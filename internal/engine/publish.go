package engine

import (
	"context"
)

// Publisher pushes the per-arch image of a release. When Build is set the
// image is built first from Dockerfile and Context; otherwise the tag is
// expected to exist locally already (image build mode).
type Publisher struct {
	Engine     *Engine
	Build      bool
	Dockerfile string
	Context    string
}

// PublishImage builds (optionally) and pushes tag for platform.
func (p *Publisher) PublishImage(ctx context.Context, tag, platform string) error {
	if p.Build {
		if err := p.Engine.BuildImage(ctx, BuildSpec{
			Tag:        tag,
			Platform:   platform,
			Dockerfile: p.Dockerfile,
			Context:    p.Context,
		}); err != nil {
			return err
		}
	}
	return p.Engine.PushImage(ctx, tag)
}
