package services

import (
	"reflect"
	"strings"
	"testing"

	"tenderpricing/workflow"
)

func TestBuildAdvisoryPrompt(t *testing.T) {
	_, res := pricedProject(t)
	prompt := BuildAdvisoryPrompt(workflow.AdvisoryRequest{
		ProjectName: res.Summary.ProjectName,
		Strategy:    res.Strategy,
		Summary:     res.Summary,
		Risks:       res.Risk.Items,
	})

	for _, want := range []string{
		"المشروع: مدرسة الحي",
		"السعر النهائي: 2,415.00 ر.س",
		"ضريبة القيمة المضافة (15.0%)",
		"[مالية] تقلب أسعار الحديد",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestParseAdvisoryNotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "  \n\n", nil},
		{"markers", "- راجع الكميات\n2. ثبّت أسعار الحديد\n• وثّق الاستثناءات", []string{"راجع الكميات", "ثبّت أسعار الحديد", "وثّق الاستثناءات"}},
		{"arabic numerals", "١) ملاحظة أولى", []string{"ملاحظة أولى"}},
		{"leading figure kept", "15% من البنود بلا تحليل", []string{"15% من البنود بلا تحليل"}},
		{"capped", "a\nb\nc\nd\ne\nf\ng", []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAdvisoryNotes(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAdvisoryNotes() = %q, want %q", got, tt.want)
			}
		})
	}
}
