// Package application contém os casos de uso do front door: a decisão de admissão
// (com o contador de conexões admitidas) e a regra de disparo da troca entre pares.
//
// Ele depende apenas do pacote domain e não conhece net.Listener nem goroutines de
// infraestrutura. Ex.: AdmissionService.Decide(addr, now) retorna uma Decision.
package application
