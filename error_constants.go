package apigwmock

const (
	ErrorCodeConfigInvalid       = "config.invalid"
	ErrorCodeUnresolvedReference = "config.unresolved_reference"
	ErrorCodeConfigLoad          = "config.load_failed"
	ErrorCodeSynthFailed         = "synth.failed"
	ErrorCodeTemplateInvalid     = "template.invalid"
	ErrorCodeOutputsMissing      = "outputs.missing"
	ErrorCodeAWSRequest          = "aws.request_failed"
	ErrorCodeSmokeFailed         = "smoke.failed"
	ErrorCodeInternal            = "app.internal"
)
