package blit

import "github.com/gogpu/gputypes"

// BlendState returns the blend configuration of the blit.
//
// Color uses straight-alpha source-over. Alpha takes the maximum of source
// and destination, so compositing a translucent frame never makes an
// opaque host surface translucent.
func BlendState() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationMax,
		},
	}
}
