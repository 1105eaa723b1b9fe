package mman

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/coalwood/mman/internal/descpool"
)

// DumpJSON renders the manager's frontiers as a JSON document, for
// diagnostics and test assertions. When full is false, only the frontiers
// and descriptor counts are included; when true, the live region list is
// walked and included as well. It takes the lock for the duration of the
// walk; the document it returns is a point-in-time snapshot, not a live
// view.
func (m *Manager) DumpJSON(full bool) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := jwriter.NewWriter()
	obj := w.Object()

	obj.Name("ID").String(m.id.String())
	obj.Name("Base").String(m.base.String())
	obj.Name("Start").String(m.start.String())
	obj.Name("Brk").String(m.brk.String())
	obj.Name("Map").String(m.mp.String())
	obj.Name("End").String(m.end.String())
	obj.Name("DescriptorsInUse").Int(m.pool.InUse())
	obj.Name("DescriptorCapacity").Int(m.pool.Capacity())

	if full {
		regions := obj.Name("Regions").Array()
		for p := m.regionHead; p != descpool.None; p = m.pool.Get(p).Next {
			d := m.pool.Get(p)
			r := regions.Object()
			r.Name("Addr").String(Addr(d.Addr).String())
			r.Name("Size").Int(int(d.Size))
			r.Name("Prot").Int(int(d.Prot))
			r.Name("Flags").Int(int(d.Flags))
			r.End()
		}
		regions.End()
	}

	obj.End()

	return w.Bytes(), w.Error()
}
