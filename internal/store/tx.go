package store

import (
	"qualityline/internal/domain"
)

// Tx is the staged view handed to Mutate and View callbacks. Reads see the
// writes already made through the same Tx.
type Tx struct {
	s         *Store
	processes *staged[domain.Process]
	documents *staged[domain.Document]
	issues    *staged[domain.ContextIssue]
	actions   *staged[domain.Action]
	instances *staged[domain.FunctionInstance]
}

func (s *Store) newTx() *Tx {
	return &Tx{
		s:         s,
		processes: stage(s.processes),
		documents: stage(s.documents),
		issues:    stage(s.issues),
		actions:   stage(s.actions),
		instances: stage(s.instances),
	}
}

func (tx *Tx) prepare() ([]Op, error) {
	var ops []Op
	for _, prep := range []func() ([]Op, error){
		tx.processes.prepare,
		tx.documents.prepare,
		tx.issues.prepare,
		tx.actions.prepare,
		tx.instances.prepare,
	} {
		batch, err := prep()
		if err != nil {
			return nil, err
		}
		ops = append(ops, batch...)
	}
	return ops, nil
}

func (tx *Tx) apply() {
	tx.processes.apply()
	tx.documents.apply()
	tx.issues.apply()
	tx.actions.apply()
	tx.instances.apply()
	for _, id := range tx.instances.touched {
		if fi, ok := tx.instances.puts[id]; ok {
			tx.s.index(fi)
		}
	}
}

func (tx *Tx) Process(id string) (domain.Process, bool) { return tx.processes.get(id) }
func (tx *Tx) Processes() []domain.Process              { return tx.processes.list() }
func (tx *Tx) PutProcess(p domain.Process)              { tx.processes.put(p.ID, p) }

func (tx *Tx) Document(id string) (domain.Document, bool) { return tx.documents.get(id) }
func (tx *Tx) Documents() []domain.Document               { return tx.documents.list() }
func (tx *Tx) PutDocument(d domain.Document)              { tx.documents.put(d.ID, d) }
func (tx *Tx) DeleteDocument(id string) bool              { return tx.documents.remove(id) }

func (tx *Tx) Issue(id string) (domain.ContextIssue, bool) { return tx.issues.get(id) }
func (tx *Tx) Issues() []domain.ContextIssue               { return tx.issues.list() }
func (tx *Tx) PutIssue(i domain.ContextIssue)              { tx.issues.put(i.ID, i) }

func (tx *Tx) Action(id string) (domain.Action, bool) { return tx.actions.get(id) }
func (tx *Tx) Actions() []domain.Action               { return tx.actions.list() }
func (tx *Tx) PutAction(a domain.Action)              { tx.actions.put(a.ID, a) }

func (tx *Tx) Instance(id string) (domain.FunctionInstance, bool) { return tx.instances.get(id) }
func (tx *Tx) Instances() []domain.FunctionInstance               { return tx.instances.list() }
func (tx *Tx) PutInstance(fi domain.FunctionInstance)             { tx.instances.put(fi.ID, fi) }

// InstanceFor finds the instance of a function attached to a process.
func (tx *Tx) InstanceFor(functionID, processID string) (domain.FunctionInstance, bool) {
	for _, id := range tx.instances.touched {
		if fi, ok := tx.instances.puts[id]; ok && fi.FunctionID == functionID && fi.ProcessID == processID {
			return tx.instances.base.clone(fi), true
		}
	}
	id, ok := tx.s.byPair[pairKey{functionID: functionID, processID: processID}]
	if !ok {
		return domain.FunctionInstance{}, false
	}
	return tx.instances.get(id)
}

// InstancesOf lists every instance of a function across processes.
func (tx *Tx) InstancesOf(functionID string) []domain.FunctionInstance {
	var out []domain.FunctionInstance
	seen := map[string]bool{}
	for _, id := range tx.s.byFunction[functionID] {
		if fi, ok := tx.instances.get(id); ok {
			out = append(out, fi)
			seen[id] = true
		}
	}
	for _, id := range tx.instances.touched {
		if fi, ok := tx.instances.puts[id]; ok && fi.FunctionID == functionID && !seen[id] {
			out = append(out, tx.instances.base.clone(fi))
		}
	}
	return out
}
