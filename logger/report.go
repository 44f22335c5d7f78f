package logger

import (
	"sort"
	"sync"
	"sync/atomic"
)

type componentStat struct {
	warns  int64
	errors int64
	rows   int64
}

var components sync.Map // map[string]*componentStat

func stat(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&stat(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&stat(component).errors, 1)
}

func recordFlow(destination string, count int) {
	atomic.AddInt64(&stat(destination).rows, int64(count))
}

// Warnings returns the number of warnings logged by component since the last Reset.
func Warnings(component string) int64 {
	v, ok := components.Load(component)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(&v.(*componentStat).warns)
}

// ResetReport clears the per-component counters.
func ResetReport() {
	components.Range(func(k, _ any) bool {
		components.Delete(k)
		return true
	})
}

// Report logs one summary line with warning, error and record counts per component.
func Report(log *Log) {
	var names []string
	components.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)

	fields := Fields{}
	var warns, errs int64
	for _, name := range names {
		cs := stat(name)
		w := atomic.LoadInt64(&cs.warns)
		e := atomic.LoadInt64(&cs.errors)
		r := atomic.LoadInt64(&cs.rows)
		warns += w
		errs += e
		fields[name] = map[string]int64{"warns": w, "errors": e, "records": r}
	}
	fields["warns_total"] = warns
	fields["errors_total"] = errs

	log.WithComponent("report").WithFields(fields).Info("run report")
}
