// Package render produces the configuration files of an installation.
//
// Rendering is a pure function of the provisioning state and the
// configuration: the same input always yields byte-identical files.
// Writing is separate (see [Write]) and only touches files whose content
// or mode changed.
package render
