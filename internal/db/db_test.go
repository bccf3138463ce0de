package db

import "testing"

func TestPoolConfig_RuntimeParams(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/hotel?sslmode=disable")
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	params := cfg.ConnConfig.RuntimeParams
	if params["timezone"] != "UTC" {
		t.Errorf("timezone = %q, want UTC", params["timezone"])
	}
	if params["application_name"] != applicationName {
		t.Errorf("application_name = %q", params["application_name"])
	}
	if params["lock_timeout"] != lockTimeout {
		t.Errorf("lock_timeout = %q", params["lock_timeout"])
	}
}

func TestPoolConfig_KeepsExplicitParams(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/hotel?application_name=night-audit&lock_timeout=1s")
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	params := cfg.ConnConfig.RuntimeParams
	if params["application_name"] != "night-audit" || params["lock_timeout"] != "1s" {
		t.Errorf("explicit params overwritten: %v", params)
	}
}

func TestPoolConfig_BadURL(t *testing.T) {
	if _, err := poolConfig("postgres://u:p@localhost:notaport/hotel"); err == nil {
		t.Error("expected parse error")
	}
}
