package newrelic

import (
	"os"
	"testing"
)

func TestStartAgentWithoutLicense(t *testing.T) {
	os.Unsetenv(envKeyLicense)

	app, shutdown := StartAgent()
	if app == nil {
		t.Fatal("expected a *newrelic.Application, but got nil")
	}

	txn := app.StartTransaction("disabled")
	if txn == nil {
		t.Error("expected a no-op transaction, but got nil")
	}
	txn.End()

	shutdown()
}
