package pipeline

import (
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/policy"
)

// Validate applies the selection rules to a batch of candidates and
// returns the accepted subset plus advisory diagnostics. It is a pure
// function of its input: one file's rejection never affects another.
//
// Rule order per candidate: type check before size check; a file failing
// both reports only the type failure. A selection larger than the batch
// limit is truncated to the first MaxFiles in selection order, reported
// once for the whole batch.
func Validate(candidates []models.SelectedFile, p policy.Policy) models.ValidationReport {
	report := models.ValidationReport{}

	considered := candidates
	if len(candidates) > p.MaxFiles {
		considered = candidates[:p.MaxFiles]
		report.Diagnostics = append(report.Diagnostics, models.NewDiagnostic(models.ErrTooManyFiles, ""))
	}

	for _, f := range considered {
		outcome := models.ValidationOutcome{File: f, FileName: f.Name}

		switch {
		case Classify(f.Name, f.MIMEType, p) == FormatUnknown:
			outcome.Reason = models.ErrNotAnImage
		case f.Size > p.MaxFileSizeBytes:
			outcome.Reason = models.ErrFileTooLarge
		default:
			outcome.Accepted = true
		}

		if outcome.Accepted {
			report.Accepted = append(report.Accepted, f)
		} else {
			report.Diagnostics = append(report.Diagnostics, models.NewDiagnostic(outcome.Reason, f.Name))
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if len(report.Accepted) == 0 && len(candidates) > 0 {
		report.Diagnostics = append(report.Diagnostics, models.NewDiagnostic(models.ErrNoValidFiles, ""))
	}

	return report
}
