package common

import (
	"strings"
	"testing"
)

func checkKeyValue(t *testing.T, format map[string]string, key, value string) {
	if v, ok := format[key]; !ok {
		t.Errorf("key %s not found", key)
	} else if v != value {
		t.Errorf("expected %s for key %s, got %s", value, key, v)
	}
}

func TestInfo(t *testing.T) {
	if _, err := Info("S2B_MSIL1C_20190108T104429_N0207_R008_T32UNF_20190108T12485"); err == nil {
		t.Errorf("too short file name")
	}
	if format, err := Info("S2B_MSIL1C_20190108T104429_N0207_R008_T32UNF_20190108T124859.SAFE"); err != nil {
		t.Errorf("%s", err.Error())
	} else {
		checkKeyValue(t, format, "MISSION_ID", "S2B")
		checkKeyValue(t, format, "PRODUCT_LEVEL", "L1C")
		checkKeyValue(t, format, "DATE", "20190108")
		checkKeyValue(t, format, "YEAR", "2019")
		checkKeyValue(t, format, "MONTH", "01")
		checkKeyValue(t, format, "DAY", "08")
		checkKeyValue(t, format, "TIME", "104429")
		checkKeyValue(t, format, "HOUR", "10")
		checkKeyValue(t, format, "MINUTE", "44")
		checkKeyValue(t, format, "SECOND", "29")
		checkKeyValue(t, format, "PDGS", "0207")
		checkKeyValue(t, format, "ORBIT", "008")
		checkKeyValue(t, format, "TILE", "T32UNF")
		checkKeyValue(t, format, "LATITUDE_BAND", "32")
		checkKeyValue(t, format, "GRID_SQUARE", "U")
		checkKeyValue(t, format, "GRANULE_ID", "NF")
	}
	if _, err := Info("S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7"); err == nil {
		t.Errorf("too short file name")
	}
	if format, err := Info("S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C"); err != nil {
		t.Errorf("%s", err.Error())
	} else {
		checkKeyValue(t, format, "MISSION_ID", "S1A")
		checkKeyValue(t, format, "MODE", "IW")
		checkKeyValue(t, format, "PRODUCT_TYPE", "SLC")
		checkKeyValue(t, format, "RESOLUTION", "_")
		checkKeyValue(t, format, "PROCESSING_LEVEL", "1")
		checkKeyValue(t, format, "PRODUCT_CLASS", "S")
		checkKeyValue(t, format, "POLARISATION", "DV")
		checkKeyValue(t, format, "DATE", "20190115")
		checkKeyValue(t, format, "YEAR", "2019")
		checkKeyValue(t, format, "MONTH", "01")
		checkKeyValue(t, format, "DAY", "15")
		checkKeyValue(t, format, "TIME", "170106")
		checkKeyValue(t, format, "HOUR", "17")
		checkKeyValue(t, format, "MINUTE", "01")
		checkKeyValue(t, format, "SECOND", "06")
		checkKeyValue(t, format, "ORBIT", "025491")
		checkKeyValue(t, format, "MISSION", "02D361")
		checkKeyValue(t, format, "UNIQUE_ID", "7F7C")
	}
	if format, err := Info("S3A_OL_1_EFR____20200101T101545_20200101T101845_20200102T144745_0179_053_179_2160_LN1_O_NT_002.SEN3"); err != nil {
		t.Errorf("%s", err.Error())
	} else {
		checkKeyValue(t, format, "MISSION_ID", "S3A")
		checkKeyValue(t, format, "INSTRUMENT", "OL")
		checkKeyValue(t, format, "PROCESSING_LEVEL", "1")
		checkKeyValue(t, format, "PRODUCT_TYPE", "EFR")
		checkKeyValue(t, format, "DATE", "20200101")
		checkKeyValue(t, format, "YEAR", "2020")
		checkKeyValue(t, format, "MONTH", "01")
		checkKeyValue(t, format, "DAY", "01")
		checkKeyValue(t, format, "TIME", "101545")
		checkKeyValue(t, format, "HOUR", "10")
		checkKeyValue(t, format, "MINUTE", "15")
		checkKeyValue(t, format, "SECOND", "45")
	}
}

func TestGetSensorFromProductID(t *testing.T) {
	tests := map[string]Sensor{
		"S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C": Sentinel1,
		"S2B_MSIL1C_20190108T104429_N0207_R008_T32UNF_20190108T124859":        Sentinel2,
		"S3A_OL_1_EFR____20200101T101545_20200101T101845_20200102T144745_0179_053_179_2160_LN1_O_NT_002": Sentinel3,
		"LC08_L1TP_190026_20200101_20200113_01_T1": Unknown,
	}
	for id, sensor := range tests {
		if s := GetSensorFromProductID(id); s != sensor {
			t.Errorf("expected %s for %s, got %s", sensor, id, s)
		}
	}
}

func TestReadProductList(t *testing.T) {
	input := "S2A_MSIL1C_20230601T000001_N0509_R001_T01ABC_20230601T000001\n" +
		"\n" +
		"# comment\n" +
		"S2A_MSIL1C_20230601T000002_N0509_R001_T01ABC_20230601T000002\n"
	ids, err := ReadProductList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadProductList: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 identifiers, got %d", len(ids))
	}
	if ids[0] != "S2A_MSIL1C_20230601T000001_N0509_R001_T01ABC_20230601T000001" {
		t.Errorf("unexpected first identifier: %s", ids[0])
	}
	if ids[1] != "S2A_MSIL1C_20230601T000002_N0509_R001_T01ABC_20230601T000002" {
		t.Errorf("unexpected second identifier: %s", ids[1])
	}
}

func TestStateTerminal(t *testing.T) {
	for _, state := range StateValues() {
		terminal := state == StateCOMPLETE || state == StateFAILED
		if state.Terminal() != terminal {
			t.Errorf("expected Terminal()=%v for %s", terminal, state)
		}
	}
}

func TestBatchResult(t *testing.T) {
	r := NewBatchResult("test-batch")
	r.Add(TaskResult{ProductID: "a", State: StateCOMPLETE})
	r.Add(TaskResult{ProductID: "b", State: StateFAILED, Reason: ReasonTooManyRetries})
	if r.Completed != 1 || r.Failed != 1 {
		t.Errorf("expected 1 completed and 1 failed, got %d/%d", r.Completed, r.Failed)
	}
	if r.AllComplete() {
		t.Errorf("batch with failures reported as complete")
	}
	r2 := NewBatchResult("test-batch-2")
	r2.Add(TaskResult{ProductID: "a", State: StateCOMPLETE})
	if !r2.AllComplete() {
		t.Errorf("fully completed batch not reported as complete")
	}
}
