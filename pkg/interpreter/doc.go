// Package interpreter executes standardized RPAL programs on a
// control/stack/environment machine.
//
// Evaluation is single threaded and every call owns its machine state:
// the control and value stacks, the environment pool and the scope stack
// are created for one run and discarded afterwards. Programs that do not
// terminate keep the machine looping.
//
// Errors fall into three groups, all matchable with errors.As:
// *standardize.Error for malformed trees, *MachineError for inconsistent
// machine state and *RuntimeError for failures of the program itself.
package interpreter
