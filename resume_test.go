package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResumeDecisionMatrix(t *testing.T) {
	cases := []struct {
		name         string
		mode         ResumeMode
		localExists  bool
		localSize    int64
		incomingSize uint64
		wantAction   resumeAction
	}{
		{"never_absent_restarts", ResumeNever, false, 0, 100, resumeFromOffset},
		{"never_present_restarts_zero", ResumeNever, true, 50, 100, resumeRestartZero},
		{"skip_existing_present", ResumeSkipExisting, true, 10, 100, resumeSkip},
		{"skip_existing_absent", ResumeSkipExisting, false, 0, 100, resumeFromOffset},
		{"tail_absent_restarts", ResumeCRCTail, false, 0, 100, resumeFromOffset},
		{"tail_shorter_verifies", ResumeCRCTail, true, 40, 100, resumeVerifyRequired},
		{"tail_same_size_verifies", ResumeCRCTail, true, 100, 100, resumeVerifyRequired},
		{"tail_larger_aborts", ResumeCRCTail, true, 150, 100, resumeAbort},
		{"tail_or_zero_larger_restarts", ResumeCRCTailOrZero, true, 150, 100, resumeRestartZero},
		{"full_shorter_verifies", ResumeCRCFull, true, 40, 100, resumeVerifyRequired},
		{"full_larger_aborts", ResumeCRCFull, true, 150, 100, resumeAbort},
		{"full_or_zero_larger_restarts", ResumeCRCFullOrZero, true, 150, 100, resumeRestartZero},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := computeResumeDecision(c.mode, 0, c.localExists, c.localSize, c.incomingSize)
			require.Equal(t, c.wantAction, got.Action, "mode=%s local=%d/%v incoming=%d", c.mode, c.localSize, c.localExists, c.incomingSize)
		})
	}
}

func TestResumeDecisionCRCFullCapsWindowToFullVerifyCap(t *testing.T) {
	got := computeResumeDecision(ResumeCRCFull, 0, true, fullVerifyCapBytes*3, fullVerifyCapBytes*3+10)
	require.Equal(t, resumeVerifyRequired, got.Action)
	require.Equal(t, uint64(fullVerifyCapBytes), got.VerifyLen)
}
